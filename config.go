// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import (
	"sync"

	"github.com/caarlos0/env/v11"
)

// Config is the runtime's own environment switches (§6 Environment),
// loaded with github.com/caarlos0/env the way
// dmitrymomot-foundation/core/config loads every application config type:
// parsed once from the process environment and cached, rather than
// re-parsed on every call.
type Config struct {
	// DisableDefaultEnv suppresses loading of the host's default
	// interpreter environment (~/.doeff.py in the source; out of core
	// here, but the switch is still a runtime-wide config value a CLI
	// front-end or embedder reads).
	DisableDefaultEnv bool `env:"DOEFF_DISABLE_DEFAULT_ENV" envDefault:"false"`
	// Debug is the DOEFF_DEBUG switch for effect-creation-site capture.
	// The package does not read it by itself: capture is switched by
	// [EnableEffectSiteCapture] (trace.go) alone.
	Debug bool `env:"DOEFF_DEBUG" envDefault:"false"`
}

var loadConfigOnce = sync.OnceValues(func() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
})

// LoadConfig parses [Config] from the process environment, caching the
// result for the lifetime of the process — matching
// dmitrymomot-foundation/core/config's "load once per type" behavior, here
// specialized to the one runtime-wide config type since doeffvm has no
// per-caller config types of its own.
func LoadConfig() (Config, error) {
	return loadConfigOnce()
}

// MustLoadConfig is [LoadConfig], panicking on a malformed environment.
// Useful at process startup, mirroring the source's fail-fast config
// loading convention.
func MustLoadConfig() Config {
	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return cfg
}
