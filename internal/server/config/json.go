package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/standard/dreamcalendar/internal/flagx"
	"github.com/standard/dreamcalendar/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	Env                          string          `json:"env"`
	EndpointAddrHTTP             string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string          `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string          `json:"database_dsn"`
	SecretKey                    string          `json:"secret_key"`
	HashAlgorithm                string          `json:"hash_algorithm"`
	AccessTokenValidityDuration  timex.Duration  `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration  `json:"refresh_token_validity_duration"`
	RefreshTokenRenewalWindow    *timex.Duration `json:"refresh_token_renewal_window"`
}

// parseJson overlays the file named by -c/-config onto config. Keys missing
// from the file keep their current value. Without the flag nothing happens.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.ConfigFileFlag(args)

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", jsonConfigFile, err)
	}

	setString(&config.Env, c.Env)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.HashAlgorithm, c.HashAlgorithm)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	// zero is a legal window, so only absence keeps the current value
	if c.RefreshTokenRenewalWindow != nil {
		config.RefreshTokenRenewalWindow = c.RefreshTokenRenewalWindow.Duration
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
