package build

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcr-io/lexcr/internal/engine"
	"github.com/lexcr-io/lexcr/internal/lexapi"
	"github.com/lexcr-io/lexcr/internal/lexapi/lexapitest"
)

func testDriver(fake *lexapitest.Fake) *Driver {
	d := NewDriver(fake)
	d.PollInterval = time.Millisecond
	d.Retry = &engine.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	return d
}

func seedBot(t *testing.T, fake *lexapitest.Fake, locales ...string) string {
	t.Helper()
	ctx := context.Background()
	botID, err := fake.CreateBot(ctx, map[string]any{"botName": "B"})
	require.NoError(t, err)
	for _, loc := range locales {
		require.NoError(t, fake.CreateLocale(ctx, botID, map[string]any{"localeId": loc}))
	}
	return botID
}

func TestDriver_PollsUntilBuilt(t *testing.T) {
	fake := lexapitest.New()
	botID := seedBot(t, fake, "en_US")
	fake.ScriptBuildPolls(botID, "en_US",
		lexapi.StatusBuilding, lexapi.StatusBuilding, lexapi.StatusBuilt)

	jobs, err := testDriver(fake).Build(context.Background(), botID, []string{"en_US"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, JobBuilt, jobs[0].Status)
	assert.Equal(t, 3, fake.CallCount("LocaleStatus"))
}

func TestDriver_ThrottledTriggerRetries(t *testing.T) {
	fake := lexapitest.New()
	botID := seedBot(t, fake, "en_US")
	fake.FailWith("BuildLocale", lexapitest.Throttle(), lexapitest.Throttle())

	jobs, err := testDriver(fake).Build(context.Background(), botID, []string{"en_US"})
	require.NoError(t, err)
	assert.Equal(t, JobBuilt, jobs[0].Status)
	assert.Equal(t, 3, fake.CallCount("BuildLocale"))
}

func TestDriver_OneFailureDoesNotStopSiblings(t *testing.T) {
	fake := lexapitest.New()
	botID := seedBot(t, fake, "en_US", "de_DE")
	fake.ScriptBuildPolls(botID, "en_US", lexapi.StatusBuilding, lexapi.StatusFailed)
	fake.ScriptBuildPolls(botID, "de_DE", lexapi.StatusBuilding, lexapi.StatusBuilt)

	jobs, err := testDriver(fake).Build(context.Background(), botID, []string{"en_US", "de_DE"})
	require.Error(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, JobFailed, jobs[0].Status)
	assert.Error(t, jobs[0].Err)
	assert.Equal(t, JobBuilt, jobs[1].Status)
}

func TestDriver_BatchesRespectConcurrencyQuota(t *testing.T) {
	fake := lexapitest.New()
	locales := []string{"en_US", "de_DE", "fr_FR", "es_ES", "it_IT", "ja_JP", "ko_KR"}
	botID := seedBot(t, fake, locales...)
	for _, loc := range locales {
		fake.ScriptBuildPolls(botID, loc, lexapi.StatusBuilding, lexapi.StatusBuilt)
	}

	d := testDriver(fake)
	d.MaxConcurrent = 5
	jobs, err := d.Build(context.Background(), botID, locales)
	require.NoError(t, err)
	for _, job := range jobs {
		assert.Equal(t, JobBuilt, job.Status, job.LocaleID)
	}

	// The first poll tick sees at most five builds in flight.
	triggersBeforeFirstPoll := 0
	for _, call := range fake.Calls {
		if len(call) >= len("LocaleStatus") && call[:len("LocaleStatus")] == "LocaleStatus" {
			break
		}
		if len(call) >= len("BuildLocale") && call[:len("BuildLocale")] == "BuildLocale" {
			triggersBeforeFirstPoll++
		}
	}
	assert.Equal(t, 5, triggersBeforeFirstPoll)
}

func TestDriver_DeadlineSurfacesRetryable(t *testing.T) {
	fake := lexapitest.New()
	botID := seedBot(t, fake, "en_US")
	fake.ScriptBuildPolls(botID, "en_US", lexapi.StatusBuilding)

	d := testDriver(fake)
	d.MaxPolls = 3
	jobs, err := d.Build(context.Background(), botID, []string{"en_US"})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrDeadlineExceeded)
	assert.Equal(t, JobFailed, jobs[0].Status)
	assert.ErrorIs(t, jobs[0].Err, engine.ErrDeadlineExceeded)
}

func TestDriver_NoLocales(t *testing.T) {
	fake := lexapitest.New()
	jobs, err := testDriver(fake).Build(context.Background(), "BOT1000001", nil)
	assert.NoError(t, err)
	assert.Empty(t, jobs)
}
