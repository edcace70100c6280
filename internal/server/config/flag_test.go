package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{name: "all flags", args: []string{
			"-e", "prod", "-l", "127.0.0.1:8081", "-a", "127.0.0.1:9090", "-d", "db", "-s", "secret",
			"-g", "sha512", "-t", "1", "-r", "180", "-w", "30",
		},
			expected: &Config{
				Env:                          "prod",
				EndpointAddrHTTP:             "127.0.0.1:8081",
				EndpointAddrGRPC:             "127.0.0.1:9090",
				DatabaseDSN:                  "db",
				SecretKey:                    "secret",
				HashAlgorithm:                "sha512",
				AccessTokenValidityDuration:  1 * time.Minute,
				RefreshTokenValidityDuration: 3 * time.Hour,
				RefreshTokenRenewalWindow:    30 * time.Minute,
			}},
		{name: "foreign flags ignored", args: []string{"create", "-email", "a@x.io", "-s", "secret"},
			expected: &Config{
				SecretKey:                    "secret",
				AccessTokenValidityDuration:  90 * time.Second,
				RefreshTokenValidityDuration: time.Hour,
			}},
		{name: "bad int", args: []string{"-t", "soon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{
				AccessTokenValidityDuration:  90 * time.Second,
				RefreshTokenValidityDuration: time.Hour,
			}

			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
