// Package collabcfg loads the collab session layer's host-side
// configuration from the environment.
package collabcfg

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the environment-tunable knobs for a collab server.
type Config struct {
	ListenAddr string `envconfig:"TERMWIRE_COLLAB_LISTEN" default:"0.0.0.0:0"`
	MaxPeers   int    `envconfig:"TERMWIRE_COLLAB_MAX_PEERS" default:"8"`
	Name       string `envconfig:"TERMWIRE_COLLAB_NAME" default:"anonymous"`
	Color      uint32 `envconfig:"TERMWIRE_COLLAB_COLOR" default:"8894711"` // 0x87b8f7
}

// Load reads Config from the environment, applying defaults for anything
// unset.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("collabcfg: %w", err)
	}
	return c, nil
}
