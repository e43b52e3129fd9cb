// Package cr orchestrates a single provisioning request end to end:
// normalize the desired state, diff it against the last known state, execute
// the operation plan, and drive the affected locale builds to completion.
package cr

import (
	"os"
	"strconv"
	"time"

	"github.com/lexcr-io/lexcr/internal/build"
	"github.com/lexcr-io/lexcr/internal/engine"
	"github.com/lexcr-io/lexcr/internal/lexapi"
	"github.com/lexcr-io/lexcr/internal/logging"
)

// Environment knobs, read once at construction.
const (
	envPollInterval        = "POLL_SLEEP_TIME_IN_SECS"
	envMaxConcurrentBuilds = "MAX_CONCURRENT_BUILDS"
)

// Provisioner handles the three custom resource types backed by one bot
// tree: the bot itself, its immutable versions, and its aliases. Construct
// it once at process start and reuse it across invocations.
type Provisioner struct {
	api      lexapi.API
	executor *engine.Executor
	builder  *build.Driver
}

// NewProvisioner wires a provisioner around the given API client, applying
// environment overrides for the poll cadence and build concurrency.
func NewProvisioner(api lexapi.API) *Provisioner {
	p := &Provisioner{
		api:      api,
		executor: engine.NewExecutor(api),
		builder:  build.NewDriver(api),
	}
	if v, ok := envInt(envPollInterval); ok {
		interval := time.Duration(v) * time.Second
		p.executor.PollInterval = interval
		p.builder.PollInterval = interval
	}
	if v, ok := envInt(envMaxConcurrentBuilds); ok {
		p.builder.MaxConcurrent = v
	}
	return p
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		logging.Warn("ignoring invalid environment value", "key", key, "value", raw)
		return 0, false
	}
	return v, true
}

// passthrough strips the envelope's bookkeeping keys from a property map so
// the remainder can be proxied to the API verbatim.
func passthrough(props map[string]any, drop ...string) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if k == "ServiceToken" {
			continue
		}
		skip := false
		for _, d := range drop {
			if k == d {
				skip = true
				break
			}
		}
		if !skip {
			out[k] = v
		}
	}
	return out
}

// stringProp reads a string-valued property, "" when absent or non-string.
func stringProp(props map[string]any, key string) string {
	v, _ := props[key].(string)
	return v
}
