package cr

import (
	"context"
	"fmt"
	"regexp"

	"github.com/lexcr-io/lexcr/internal/engine"
	"github.com/lexcr-io/lexcr/internal/lexapi"
	"github.com/lexcr-io/lexcr/internal/logging"
	"github.com/lexcr-io/lexcr/internal/resource"
)

// botIDPattern matches a Lex bot identifier: exactly ten alphanumeric
// characters. Anything else as a physical id means creation never returned
// one (an interrupted create being rolled back).
var botIDPattern = regexp.MustCompile(`^[0-9A-Za-z]{10}$`)

func isBotID(s string) bool { return botIDPattern.MatchString(s) }

// CreateBot provisions a full bot tree from scratch and builds every locale.
func (p *Provisioner) CreateBot(ctx context.Context, props map[string]any) (*Result, error) {
	desired, err := resource.Normalize(props)
	if err != nil {
		return nil, err
	}

	plan := engine.Diff(desired, nil)
	logging.Info("creating bot",
		"bot_name", desired.Root.Name,
		"create", plan.Summary.Create)

	execRes, execErr := p.executor.Execute(ctx, plan, desired, "")
	res := newResult(execRes.BotID)
	res.Data["botId"] = execRes.BotID
	res.Data["botName"] = desired.Root.Name
	if execErr != nil {
		return res, execErr
	}
	return res, p.buildLocales(ctx, res, execRes.BuildLocales)
}

// UpdateBot reconciles the desired tree against the previously applied one
// and rebuilds the locales the changes touched.
func (p *Provisioner) UpdateBot(ctx context.Context, physicalID string, props, oldProps map[string]any) (*Result, error) {
	desired, err := resource.Normalize(props)
	if err != nil {
		return nil, err
	}
	live, err := resource.Normalize(oldProps)
	if err != nil {
		return nil, fmt.Errorf("prior state: %w", err)
	}

	plan := engine.Diff(desired, live)
	logging.Info("updating bot",
		"bot_id", physicalID,
		"create", plan.Summary.Create,
		"update", plan.Summary.Update,
		"delete", plan.Summary.Delete,
		"unchanged", plan.Summary.NoOp)

	execRes, execErr := p.executor.Execute(ctx, plan, desired, physicalID)
	res := newResult(physicalID)
	res.Data["botId"] = physicalID
	res.Data["botName"] = desired.Root.Name
	if execErr != nil {
		return res, execErr
	}
	return res, p.buildLocales(ctx, res, execRes.BuildLocales)
}

// DeleteBot removes the whole bot. A physical id that was never a real bot
// identifier falls back to a name lookup; a bot that no longer exists (or
// never did) deletes as a no-op so rollbacks of failed creates succeed.
func (p *Provisioner) DeleteBot(ctx context.Context, physicalID string, props map[string]any) (*Result, error) {
	res := newResult(physicalID)

	botID := physicalID
	if !isBotID(physicalID) {
		name := stringProp(props, "botName")
		if name == "" {
			return nil, &resource.ValidationError{Path: "botName", Reason: "required to delete without a bot id"}
		}
		logging.Info("physical id is not a bot id, falling back to name lookup",
			"physical_id", physicalID, "bot_name", name)
		id, err := p.api.BotIDByName(ctx, name)
		if err != nil {
			return res, err
		}
		if id == "" {
			logging.Info("no bot found by name, nothing to delete", "bot_name", name)
			return res, nil
		}
		botID = id
	}

	err := engine.RetryWithBackoff(ctx, p.executor.Retry, func() error {
		return p.api.DeleteBot(ctx, botID)
	}, lexapi.IsThrottling)
	if err != nil {
		if lexapi.IsNotFound(err) {
			logging.Info("bot already gone", "bot_id", botID)
			return res, nil
		}
		return res, err
	}

	err = lexapi.WaitForStatus(ctx,
		func(ctx context.Context) (string, error) { return p.api.BotStatus(ctx, botID) },
		[]string{lexapi.StatusDeleting, lexapi.StatusAvailable},
		nil,
		p.builder.PollInterval, lexapi.DefaultMaxPolls)
	if err != nil && !lexapi.IsNotFound(err) {
		return res, err
	}
	res.Data["botId"] = botID
	return res, nil
}

// buildLocales drives the builds for the touched locales and records the
// per-locale outcome on the result.
func (p *Provisioner) buildLocales(ctx context.Context, res *Result, localeIDs []string) error {
	jobs, err := p.builder.Build(ctx, res.PhysicalID, localeIDs)
	statuses := make(map[string]string, len(jobs))
	for _, job := range jobs {
		statuses[job.LocaleID] = string(job.Status)
	}
	res.Data["buildStatuses"] = statuses
	return err
}
