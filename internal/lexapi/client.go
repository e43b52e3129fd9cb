package lexapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2"
	"github.com/aws/aws-sdk-go-v2/service/lexmodelsv2/types"

	"github.com/lexcr-io/lexcr/internal/logging"
)

// Client implements API against the Lex V2 model-building service. The
// underlying SDK client carries its own adaptive retry configuration; the
// classification in errors.go exists for the coarser build-quota backoff
// handled upstream.
type Client struct {
	lex *lexmodelsv2.Client
}

// NewClient loads the ambient AWS configuration once at process start.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Client{lex: lexmodelsv2.NewFromConfig(cfg)}, nil
}

// NewClientFromLex wraps an existing service client.
func NewClientFromLex(lex *lexmodelsv2.Client) *Client {
	return &Client{lex: lex}
}

func (c *Client) CreateBot(ctx context.Context, attrs map[string]any) (string, error) {
	input := &lexmodelsv2.CreateBotInput{}
	if err := bind(attrs, input); err != nil {
		return "", err
	}
	logging.Debug("create bot", "name", aws.ToString(input.BotName))
	out, err := c.lex.CreateBot(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.BotId), nil
}

func (c *Client) UpdateBot(ctx context.Context, botID string, attrs map[string]any) error {
	input := &lexmodelsv2.UpdateBotInput{}
	if err := bind(attrs, input); err != nil {
		return err
	}
	input.BotId = aws.String(botID)
	logging.Debug("update bot", "bot_id", botID)
	_, err := c.lex.UpdateBot(ctx, input)
	return err
}

func (c *Client) DeleteBot(ctx context.Context, botID string) error {
	logging.Debug("delete bot", "bot_id", botID)
	_, err := c.lex.DeleteBot(ctx, &lexmodelsv2.DeleteBotInput{
		BotId:                  aws.String(botID),
		SkipResourceInUseCheck: true,
	})
	return err
}

func (c *Client) BotStatus(ctx context.Context, botID string) (string, error) {
	out, err := c.lex.DescribeBot(ctx, &lexmodelsv2.DescribeBotInput{BotId: aws.String(botID)})
	if err != nil {
		return "", err
	}
	return string(out.BotStatus), nil
}

func (c *Client) BotIDByName(ctx context.Context, name string) (string, error) {
	out, err := c.lex.ListBots(ctx, &lexmodelsv2.ListBotsInput{
		Filters: []types.BotFilter{{
			Name:     types.BotFilterNameBotName,
			Values:   []string{name},
			Operator: types.BotFilterOperatorEquals,
		}},
	})
	if err != nil {
		return "", err
	}
	if len(out.BotSummaries) == 0 {
		return "", nil
	}
	return aws.ToString(out.BotSummaries[0].BotId), nil
}

func (c *Client) CreateLocale(ctx context.Context, botID string, attrs map[string]any) error {
	input := &lexmodelsv2.CreateBotLocaleInput{}
	if err := bind(attrs, input); err != nil {
		return err
	}
	input.BotId = aws.String(botID)
	input.BotVersion = aws.String(DraftVersion)
	logging.Debug("create locale", "bot_id", botID, "locale_id", aws.ToString(input.LocaleId))
	_, err := c.lex.CreateBotLocale(ctx, input)
	return err
}

func (c *Client) UpdateLocale(ctx context.Context, botID, localeID string, attrs map[string]any) error {
	input := &lexmodelsv2.UpdateBotLocaleInput{}
	if err := bind(attrs, input); err != nil {
		return err
	}
	input.BotId = aws.String(botID)
	input.BotVersion = aws.String(DraftVersion)
	input.LocaleId = aws.String(localeID)
	logging.Debug("update locale", "bot_id", botID, "locale_id", localeID)
	_, err := c.lex.UpdateBotLocale(ctx, input)
	return err
}

func (c *Client) DeleteLocale(ctx context.Context, botID, localeID string) error {
	logging.Debug("delete locale", "bot_id", botID, "locale_id", localeID)
	_, err := c.lex.DeleteBotLocale(ctx, &lexmodelsv2.DeleteBotLocaleInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(DraftVersion),
		LocaleId:   aws.String(localeID),
	})
	return err
}

func (c *Client) LocaleStatus(ctx context.Context, botID, localeID string) (string, error) {
	out, err := c.lex.DescribeBotLocale(ctx, &lexmodelsv2.DescribeBotLocaleInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(DraftVersion),
		LocaleId:   aws.String(localeID),
	})
	if err != nil {
		return "", err
	}
	return string(out.BotLocaleStatus), nil
}

func (c *Client) ListLocaleIDs(ctx context.Context, botID string) ([]string, error) {
	var ids []string
	input := &lexmodelsv2.ListBotLocalesInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(DraftVersion),
	}
	for {
		out, err := c.lex.ListBotLocales(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, s := range out.BotLocaleSummaries {
			ids = append(ids, aws.ToString(s.LocaleId))
		}
		if out.NextToken == nil {
			return ids, nil
		}
		input.NextToken = out.NextToken
	}
}

func (c *Client) CreateSlotType(ctx context.Context, botID, localeID string, attrs map[string]any) (string, error) {
	input := &lexmodelsv2.CreateSlotTypeInput{}
	if err := bind(attrs, input); err != nil {
		return "", err
	}
	input.BotId = aws.String(botID)
	input.BotVersion = aws.String(DraftVersion)
	input.LocaleId = aws.String(localeID)
	logging.Debug("create slot type", "bot_id", botID, "locale_id", localeID, "name", aws.ToString(input.SlotTypeName))
	out, err := c.lex.CreateSlotType(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.SlotTypeId), nil
}

func (c *Client) UpdateSlotType(ctx context.Context, botID, localeID, slotTypeID string, attrs map[string]any) error {
	input := &lexmodelsv2.UpdateSlotTypeInput{}
	if err := bind(attrs, input); err != nil {
		return err
	}
	input.BotId = aws.String(botID)
	input.BotVersion = aws.String(DraftVersion)
	input.LocaleId = aws.String(localeID)
	input.SlotTypeId = aws.String(slotTypeID)
	_, err := c.lex.UpdateSlotType(ctx, input)
	return err
}

func (c *Client) DeleteSlotType(ctx context.Context, botID, localeID, slotTypeID string) error {
	_, err := c.lex.DeleteSlotType(ctx, &lexmodelsv2.DeleteSlotTypeInput{
		BotId:                  aws.String(botID),
		BotVersion:             aws.String(DraftVersion),
		LocaleId:               aws.String(localeID),
		SlotTypeId:             aws.String(slotTypeID),
		SkipResourceInUseCheck: true,
	})
	return err
}

func (c *Client) SlotTypeIDByName(ctx context.Context, botID, localeID, name string) (string, error) {
	out, err := c.lex.ListSlotTypes(ctx, &lexmodelsv2.ListSlotTypesInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(DraftVersion),
		LocaleId:   aws.String(localeID),
		Filters: []types.SlotTypeFilter{{
			Name:     types.SlotTypeFilterNameSlotTypeName,
			Values:   []string{name},
			Operator: types.SlotTypeFilterOperatorEquals,
		}},
	})
	if err != nil {
		return "", err
	}
	if len(out.SlotTypeSummaries) == 0 {
		return "", nil
	}
	return aws.ToString(out.SlotTypeSummaries[0].SlotTypeId), nil
}

func (c *Client) CreateIntent(ctx context.Context, botID, localeID string, attrs map[string]any) (string, error) {
	input := &lexmodelsv2.CreateIntentInput{}
	if err := bind(attrs, input); err != nil {
		return "", err
	}
	input.BotId = aws.String(botID)
	input.BotVersion = aws.String(DraftVersion)
	input.LocaleId = aws.String(localeID)
	logging.Debug("create intent", "bot_id", botID, "locale_id", localeID, "name", aws.ToString(input.IntentName))
	out, err := c.lex.CreateIntent(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.IntentId), nil
}

func (c *Client) UpdateIntent(ctx context.Context, botID, localeID, intentID string, attrs map[string]any, priorities []SlotPriority) error {
	input := &lexmodelsv2.UpdateIntentInput{}
	if err := bind(attrs, input); err != nil {
		return err
	}
	input.BotId = aws.String(botID)
	input.BotVersion = aws.String(DraftVersion)
	input.LocaleId = aws.String(localeID)
	input.IntentId = aws.String(intentID)
	if priorities != nil {
		input.SlotPriorities = make([]types.SlotPriority, len(priorities))
		for i, p := range priorities {
			input.SlotPriorities[i] = types.SlotPriority{
				Priority: aws.Int32(int32(p.Priority)),
				SlotId:   aws.String(p.SlotID),
			}
		}
	}
	_, err := c.lex.UpdateIntent(ctx, input)
	return err
}

func (c *Client) DeleteIntent(ctx context.Context, botID, localeID, intentID string) error {
	_, err := c.lex.DeleteIntent(ctx, &lexmodelsv2.DeleteIntentInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(DraftVersion),
		LocaleId:   aws.String(localeID),
		IntentId:   aws.String(intentID),
	})
	return err
}

func (c *Client) IntentIDByName(ctx context.Context, botID, localeID, name string) (string, error) {
	out, err := c.lex.ListIntents(ctx, &lexmodelsv2.ListIntentsInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(DraftVersion),
		LocaleId:   aws.String(localeID),
		Filters: []types.IntentFilter{{
			Name:     types.IntentFilterNameIntentName,
			Values:   []string{name},
			Operator: types.IntentFilterOperatorEquals,
		}},
	})
	if err != nil {
		return "", err
	}
	if len(out.IntentSummaries) == 0 {
		return "", nil
	}
	return aws.ToString(out.IntentSummaries[0].IntentId), nil
}

func (c *Client) CreateSlot(ctx context.Context, botID, localeID, intentID, slotTypeID string, attrs map[string]any) (string, error) {
	input := &lexmodelsv2.CreateSlotInput{}
	if err := bind(attrs, input); err != nil {
		return "", err
	}
	input.BotId = aws.String(botID)
	input.BotVersion = aws.String(DraftVersion)
	input.LocaleId = aws.String(localeID)
	input.IntentId = aws.String(intentID)
	input.SlotTypeId = aws.String(slotTypeID)
	logging.Debug("create slot", "bot_id", botID, "intent_id", intentID, "name", aws.ToString(input.SlotName))
	out, err := c.lex.CreateSlot(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.SlotId), nil
}

func (c *Client) UpdateSlot(ctx context.Context, botID, localeID, intentID, slotID, slotTypeID string, attrs map[string]any) error {
	input := &lexmodelsv2.UpdateSlotInput{}
	if err := bind(attrs, input); err != nil {
		return err
	}
	input.BotId = aws.String(botID)
	input.BotVersion = aws.String(DraftVersion)
	input.LocaleId = aws.String(localeID)
	input.IntentId = aws.String(intentID)
	input.SlotId = aws.String(slotID)
	input.SlotTypeId = aws.String(slotTypeID)
	_, err := c.lex.UpdateSlot(ctx, input)
	return err
}

func (c *Client) DeleteSlot(ctx context.Context, botID, localeID, intentID, slotID string) error {
	_, err := c.lex.DeleteSlot(ctx, &lexmodelsv2.DeleteSlotInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(DraftVersion),
		LocaleId:   aws.String(localeID),
		IntentId:   aws.String(intentID),
		SlotId:     aws.String(slotID),
	})
	return err
}

func (c *Client) SlotIDByName(ctx context.Context, botID, localeID, intentID, name string) (string, error) {
	out, err := c.lex.ListSlots(ctx, &lexmodelsv2.ListSlotsInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(DraftVersion),
		LocaleId:   aws.String(localeID),
		IntentId:   aws.String(intentID),
		Filters: []types.SlotFilter{{
			Name:     types.SlotFilterNameSlotName,
			Values:   []string{name},
			Operator: types.SlotFilterOperatorEquals,
		}},
	})
	if err != nil {
		return "", err
	}
	if len(out.SlotSummaries) == 0 {
		return "", nil
	}
	return aws.ToString(out.SlotSummaries[0].SlotId), nil
}

func (c *Client) BuildLocale(ctx context.Context, botID, localeID string) error {
	logging.Debug("build locale", "bot_id", botID, "locale_id", localeID)
	_, err := c.lex.BuildBotLocale(ctx, &lexmodelsv2.BuildBotLocaleInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(DraftVersion),
		LocaleId:   aws.String(localeID),
	})
	return err
}

func (c *Client) CreateVersion(ctx context.Context, botID, description string, localeIDs []string) (string, error) {
	spec := make(map[string]types.BotVersionLocaleDetails, len(localeIDs))
	for _, id := range localeIDs {
		spec[id] = types.BotVersionLocaleDetails{SourceBotVersion: aws.String(DraftVersion)}
	}
	out, err := c.lex.CreateBotVersion(ctx, &lexmodelsv2.CreateBotVersionInput{
		BotId:                         aws.String(botID),
		Description:                   aws.String(description),
		BotVersionLocaleSpecification: spec,
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.BotVersion), nil
}

func (c *Client) VersionStatus(ctx context.Context, botID, version string) (string, error) {
	out, err := c.lex.DescribeBotVersion(ctx, &lexmodelsv2.DescribeBotVersionInput{
		BotId:      aws.String(botID),
		BotVersion: aws.String(version),
	})
	if err != nil {
		return "", err
	}
	return string(out.BotStatus), nil
}

func (c *Client) CreateAlias(ctx context.Context, botID string, attrs map[string]any) (string, error) {
	input := &lexmodelsv2.CreateBotAliasInput{}
	if err := bind(attrs, input); err != nil {
		return "", err
	}
	input.BotId = aws.String(botID)
	out, err := c.lex.CreateBotAlias(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.BotAliasId), nil
}

func (c *Client) UpdateAlias(ctx context.Context, botID, aliasID string, attrs map[string]any) error {
	input := &lexmodelsv2.UpdateBotAliasInput{}
	if err := bind(attrs, input); err != nil {
		return err
	}
	input.BotId = aws.String(botID)
	input.BotAliasId = aws.String(aliasID)
	_, err := c.lex.UpdateBotAlias(ctx, input)
	return err
}

func (c *Client) DeleteAlias(ctx context.Context, botID, aliasID string) error {
	_, err := c.lex.DeleteBotAlias(ctx, &lexmodelsv2.DeleteBotAliasInput{
		BotId:                  aws.String(botID),
		BotAliasId:             aws.String(aliasID),
		SkipResourceInUseCheck: true,
	})
	return err
}

func (c *Client) AliasStatus(ctx context.Context, botID, aliasID string) (string, error) {
	out, err := c.lex.DescribeBotAlias(ctx, &lexmodelsv2.DescribeBotAliasInput{
		BotId:      aws.String(botID),
		BotAliasId: aws.String(aliasID),
	})
	if err != nil {
		return "", err
	}
	return string(out.BotAliasStatus), nil
}

var _ API = (*Client)(nil)
