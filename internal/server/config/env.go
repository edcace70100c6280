package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// parseEnv overlays DREAMCAL_* variables. Unset variables leave fields alone.
func parseEnv(config *Config) error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("read env: %w", err)
	}
	return nil
}
