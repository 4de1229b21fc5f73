// Package scrollcfg loads the scroll engine's tunables from the
// environment, mirroring the envconfig struct-tag style api/pkg/config
// uses for its own configuration.
package scrollcfg

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/helixml/termwire/internal/scroll"
)

// Config holds the environment-tunable knobs for a scroll engine.
type Config struct {
	AnimationDuration time.Duration `envconfig:"TERMWIRE_SCROLL_DURATION" default:"250ms"`
	Bounciness        float64       `envconfig:"TERMWIRE_SCROLL_BOUNCINESS" default:"0"`
	FrameHz           float64       `envconfig:"TERMWIRE_FRAME_HZ" default:"60"`
}

// Load reads Config from the environment, applying defaults for anything
// unset.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("scrollcfg: %w", err)
	}
	return c, nil
}

// EngineConfig converts c into the scroll engine's own Config type.
func (c Config) EngineConfig() scroll.Config {
	return scroll.Config{
		AnimationDurationSeconds: c.AnimationDuration.Seconds(),
		Bounciness:               c.Bounciness,
	}
}

// FrameInterval is the per-frame dt implied by FrameHz, used as the
// default Flush argument when the caller has no better measurement of
// actual elapsed time.
func (c Config) FrameInterval() time.Duration {
	if c.FrameHz <= 0 {
		return time.Second / 60
	}
	return time.Duration(float64(time.Second) / c.FrameHz)
}
