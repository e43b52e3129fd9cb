package cr

import (
	"context"

	"github.com/lexcr-io/lexcr/internal/engine"
	"github.com/lexcr-io/lexcr/internal/lexapi"
	"github.com/lexcr-io/lexcr/internal/logging"
	"github.com/lexcr-io/lexcr/internal/resource"
)

// versionNotFoundPolls is how many consecutive NotFound responses the
// version wait rides out before treating the version as genuinely missing.
const versionNotFoundPolls = 5

// CreateVersion snapshots the DRAFT version of every requested locale into a
// new numbered bot version. The version number is the physical id.
func (p *Provisioner) CreateVersion(ctx context.Context, props map[string]any) (*Result, error) {
	botID := stringProp(props, "botId")
	if botID == "" {
		return nil, &resource.ValidationError{Path: "botId", Reason: "required"}
	}
	description := stringProp(props, "description")

	localeIDs := localeIDsProp(props)
	if len(localeIDs) == 0 {
		ids, err := p.api.ListLocaleIDs(ctx, botID)
		if err != nil {
			return nil, err
		}
		localeIDs = ids
	}

	var version string
	err := engine.RetryWithBackoff(ctx, p.executor.Retry, func() error {
		var callErr error
		version, callErr = p.api.CreateVersion(ctx, botID, description, localeIDs)
		return callErr
	}, lexapi.IsThrottling)
	if err != nil {
		return nil, err
	}
	logging.Info("created bot version", "bot_id", botID, "bot_version", version)

	// DescribeBotVersion is eventually consistent: a freshly created version
	// can 404 for the first few polls before it shows up.
	notFound := 0
	status := func(ctx context.Context) (string, error) {
		s, err := p.api.VersionStatus(ctx, botID, version)
		if lexapi.IsNotFound(err) && notFound < versionNotFoundPolls {
			notFound++
			return lexapi.StatusCreating, nil
		}
		return s, err
	}

	err = lexapi.WaitForStatus(ctx, status,
		[]string{lexapi.StatusCreating, lexapi.StatusVersioning},
		[]string{lexapi.StatusAvailable},
		p.builder.PollInterval, lexapi.DefaultMaxPolls)
	if err != nil {
		return nil, err
	}

	res := newResult(version)
	res.Data["botId"] = botID
	res.Data["botVersion"] = version
	return res, nil
}

// UpdateVersion creates a fresh version: versions are immutable, so any
// change is a replacement and the new version number becomes the physical
// id, letting the caller retire the old one.
func (p *Provisioner) UpdateVersion(ctx context.Context, props map[string]any) (*Result, error) {
	return p.CreateVersion(ctx, props)
}

// DeleteVersion retains the version. Numbered versions are cheap immutable
// snapshots and deleting them would break aliases still pointing at them.
func (p *Provisioner) DeleteVersion(ctx context.Context, physicalID string, props map[string]any) (*Result, error) {
	logging.Info("retaining bot version on delete",
		"bot_id", stringProp(props, "botId"), "bot_version", physicalID)
	return newResult(physicalID), nil
}

// localeIDsProp reads the locale list property. Templates name it
// botLocaleIds; localeIds is accepted as an alias.
func localeIDsProp(props map[string]any) []string {
	raw, ok := props["botLocaleIds"].([]any)
	if !ok {
		raw, ok = props["localeIds"].([]any)
	}
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
