package cr

import (
	"context"

	"github.com/lexcr-io/lexcr/internal/engine"
	"github.com/lexcr-io/lexcr/internal/lexapi"
	"github.com/lexcr-io/lexcr/internal/logging"
	"github.com/lexcr-io/lexcr/internal/resource"
)

// The alias Lex creates automatically with every bot. It has a fixed
// identifier, always points at the DRAFT version, and can only be updated.
const (
	TestBotAliasName = "TestBotAlias"
	TestBotAliasID   = "TSTALIASID"
)

// CreateAlias creates a bot alias, or updates the built-in test alias in
// place when the declared name matches it.
func (p *Provisioner) CreateAlias(ctx context.Context, props map[string]any) (*Result, error) {
	botID := stringProp(props, "botId")
	if botID == "" {
		return nil, &resource.ValidationError{Path: "botId", Reason: "required"}
	}
	attrs := passthrough(props, "botId")

	if stringProp(props, "botAliasName") == TestBotAliasName {
		if err := p.updateTestAlias(ctx, botID, attrs); err != nil {
			return nil, err
		}
		res := newResult(TestBotAliasID)
		res.Data["botId"] = botID
		res.Data["botAliasId"] = TestBotAliasID
		return res, nil
	}

	var aliasID string
	err := engine.RetryWithBackoff(ctx, p.executor.Retry, func() error {
		var callErr error
		aliasID, callErr = p.api.CreateAlias(ctx, botID, attrs)
		return callErr
	}, lexapi.IsThrottling)
	if err != nil {
		return nil, err
	}
	logging.Info("created bot alias", "bot_id", botID, "bot_alias_id", aliasID)

	err = lexapi.WaitForStatus(ctx,
		func(ctx context.Context) (string, error) { return p.api.AliasStatus(ctx, botID, aliasID) },
		[]string{lexapi.StatusCreating},
		[]string{lexapi.StatusAvailable},
		p.builder.PollInterval, lexapi.DefaultMaxPolls)
	if err != nil {
		return nil, err
	}

	res := newResult(aliasID)
	res.Data["botId"] = botID
	res.Data["botAliasId"] = aliasID
	return res, nil
}

// UpdateAlias updates the alias in place; the physical id never changes.
func (p *Provisioner) UpdateAlias(ctx context.Context, physicalID string, props map[string]any) (*Result, error) {
	botID := stringProp(props, "botId")
	if botID == "" {
		return nil, &resource.ValidationError{Path: "botId", Reason: "required"}
	}
	attrs := passthrough(props, "botId")

	if physicalID == TestBotAliasID {
		if err := p.updateTestAlias(ctx, botID, attrs); err != nil {
			return nil, err
		}
	} else {
		err := engine.RetryWithBackoff(ctx, p.executor.Retry, func() error {
			return p.api.UpdateAlias(ctx, botID, physicalID, attrs)
		}, lexapi.IsThrottling)
		if err != nil {
			return nil, err
		}
	}

	res := newResult(physicalID)
	res.Data["botId"] = botID
	res.Data["botAliasId"] = physicalID
	return res, nil
}

// DeleteAlias removes the alias; the built-in test alias is retained, and a
// missing alias deletes as a no-op.
func (p *Provisioner) DeleteAlias(ctx context.Context, physicalID string, props map[string]any) (*Result, error) {
	res := newResult(physicalID)
	botID := stringProp(props, "botId")

	if physicalID == TestBotAliasID {
		logging.Info("retaining built-in test alias on delete", "bot_id", botID)
		return res, nil
	}
	if botID == "" {
		logging.Info("no bot id on alias delete, nothing to do", "bot_alias_id", physicalID)
		return res, nil
	}

	err := engine.RetryWithBackoff(ctx, p.executor.Retry, func() error {
		return p.api.DeleteAlias(ctx, botID, physicalID)
	}, lexapi.IsThrottling)
	if err != nil {
		if lexapi.IsNotFound(err) {
			logging.Info("bot alias already gone", "bot_alias_id", physicalID)
			return res, nil
		}
		return res, err
	}

	err = lexapi.WaitForStatus(ctx,
		func(ctx context.Context) (string, error) { return p.api.AliasStatus(ctx, botID, physicalID) },
		[]string{lexapi.StatusDeleting},
		nil,
		p.builder.PollInterval, lexapi.DefaultMaxPolls)
	if err != nil && !lexapi.IsNotFound(err) {
		return res, err
	}
	return res, nil
}

// updateTestAlias pins the test alias to the DRAFT version regardless of the
// declared botVersion, which is the only version it may point at.
func (p *Provisioner) updateTestAlias(ctx context.Context, botID string, attrs map[string]any) error {
	pinned := make(map[string]any, len(attrs))
	for k, v := range attrs {
		pinned[k] = v
	}
	pinned["botVersion"] = lexapi.DraftVersion
	logging.Info("updating built-in test alias", "bot_id", botID)
	return engine.RetryWithBackoff(ctx, p.executor.Retry, func() error {
		return p.api.UpdateAlias(ctx, botID, TestBotAliasID, pinned)
	}, lexapi.IsThrottling)
}
