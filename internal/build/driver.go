// Package build drives the asynchronous locale build cycle: triggering
// builds in bounded batches, polling until every locale settles, and
// reporting per-locale outcomes.
package build

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexcr-io/lexcr/internal/engine"
	"github.com/lexcr-io/lexcr/internal/lexapi"
	"github.com/lexcr-io/lexcr/internal/logging"
)

// MaxConcurrentBuilds is the service quota for simultaneous locale builds
// on a single bot.
const MaxConcurrentBuilds = 5

// JobStatus is the lifecycle state of a single locale build.
type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobBuilding JobStatus = "building"
	JobBuilt    JobStatus = "built"
	JobFailed   JobStatus = "failed"
)

// Job tracks one locale build from trigger to settlement.
type Job struct {
	LocaleID string
	Status   JobStatus
	Err      error
}

// Driver runs locale builds against the service. At most MaxConcurrent
// builds are in flight at once; a settled build frees its slot for the next
// pending locale. One locale's failure does not stop the others.
type Driver struct {
	API           lexapi.API
	MaxConcurrent int
	PollInterval  time.Duration
	MaxPolls      int
	Retry         *engine.RetryPolicy
}

// NewDriver returns a driver with the quota-sized batch limit and default
// polling cadence.
func NewDriver(api lexapi.API) *Driver {
	return &Driver{
		API:           api,
		MaxConcurrent: MaxConcurrentBuilds,
		PollInterval:  lexapi.DefaultPollInterval,
		MaxPolls:      lexapi.DefaultMaxPolls,
		Retry:         engine.DefaultRetryPolicy(),
	}
}

// Build builds the given locales and blocks until every one settles, the
// poll budget runs out, or the context expires. The returned jobs always
// cover every requested locale, in request order; the error aggregates any
// failures.
func (d *Driver) Build(ctx context.Context, botID string, localeIDs []string) ([]*Job, error) {
	jobs := make([]*Job, len(localeIDs))
	for i, id := range localeIDs {
		jobs[i] = &Job{LocaleID: id, Status: JobPending}
	}
	if len(jobs) == 0 {
		return jobs, nil
	}

	maxConcurrent := d.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = MaxConcurrentBuilds
	}
	maxPolls := d.MaxPolls
	if maxPolls <= 0 {
		maxPolls = lexapi.DefaultMaxPolls
	}

	inflight := 0
	if err := d.fill(ctx, botID, jobs, &inflight, maxConcurrent); err != nil {
		return jobs, err
	}

	for poll := 0; inflight > 0 || pendingCount(jobs) > 0; poll++ {
		if poll >= maxPolls {
			d.markTimedOut(jobs)
			return jobs, fmt.Errorf("%w: %d locale build(s) still in progress after %d polls",
				engine.ErrDeadlineExceeded, inflight, maxPolls)
		}
		select {
		case <-ctx.Done():
			d.markTimedOut(jobs)
			return jobs, fmt.Errorf("%w: locale builds interrupted", engine.ErrDeadlineExceeded)
		case <-time.After(d.PollInterval):
		}

		for _, job := range jobs {
			if job.Status != JobBuilding {
				continue
			}
			status, err := d.localeStatus(ctx, botID, job.LocaleID)
			if err != nil {
				job.Status = JobFailed
				job.Err = err
				inflight--
				continue
			}
			switch status {
			case lexapi.StatusBuilding, lexapi.StatusReadyExpressTesting:
				// still going
			case lexapi.StatusBuilt:
				logging.Info("locale built", "bot_id", botID, "locale_id", job.LocaleID)
				job.Status = JobBuilt
				inflight--
			default:
				job.Status = JobFailed
				job.Err = fmt.Errorf("locale %s build ended in status %q", job.LocaleID, status)
				inflight--
			}
		}

		if err := d.fill(ctx, botID, jobs, &inflight, maxConcurrent); err != nil {
			return jobs, err
		}
	}

	return jobs, buildErr(jobs)
}

// fill triggers pending builds until the concurrency quota is reached.
// Trigger throttling is retried with backoff; a trigger that still fails
// marks only its own job.
func (d *Driver) fill(ctx context.Context, botID string, jobs []*Job, inflight *int, maxConcurrent int) error {
	for _, job := range jobs {
		if *inflight >= maxConcurrent {
			return nil
		}
		if job.Status != JobPending {
			continue
		}
		logging.Info("starting locale build", "bot_id", botID, "locale_id", job.LocaleID)
		err := engine.RetryWithBackoff(ctx, d.Retry, func() error {
			return d.API.BuildLocale(ctx, botID, job.LocaleID)
		}, lexapi.IsThrottling)
		if err != nil {
			if errors.Is(err, engine.ErrDeadlineExceeded) {
				job.Err = err
				job.Status = JobFailed
				d.markTimedOut(jobs)
				return err
			}
			job.Status = JobFailed
			job.Err = err
			continue
		}
		job.Status = JobBuilding
		*inflight++
	}
	return nil
}

func (d *Driver) localeStatus(ctx context.Context, botID, localeID string) (string, error) {
	var status string
	err := engine.RetryWithBackoff(ctx, d.Retry, func() error {
		var callErr error
		status, callErr = d.API.LocaleStatus(ctx, botID, localeID)
		return callErr
	}, lexapi.IsThrottling)
	return status, err
}

// markTimedOut fails every job that has not settled, so callers report a
// complete per-locale picture even on deadline expiry.
func (d *Driver) markTimedOut(jobs []*Job) {
	for _, job := range jobs {
		if job.Status == JobPending || job.Status == JobBuilding {
			job.Status = JobFailed
			if job.Err == nil {
				job.Err = engine.ErrDeadlineExceeded
			}
		}
	}
}

func pendingCount(jobs []*Job) int {
	n := 0
	for _, job := range jobs {
		if job.Status == JobPending {
			n++
		}
	}
	return n
}

func buildErr(jobs []*Job) error {
	var errs []error
	for _, job := range jobs {
		if job.Status == JobFailed {
			errs = append(errs, fmt.Errorf("locale %s: %w", job.LocaleID, job.Err))
		}
	}
	return errors.Join(errs...)
}
