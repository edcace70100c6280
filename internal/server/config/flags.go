package config

import (
	"flag"
	"io"
	"time"

	"github.com/standard/dreamcalendar/internal/flagx"
)

// Flags lists every flag parseFlags understands.
var Flags = []string{"-e", "-l", "-a", "-d", "-s", "-g", "-t", "-r", "-w"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-e string   env: local, dev or prod
//	-l string   HTTP bind address (e.g., ":8080")
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   token secret key
//	-g string   password hash algorithm (e.g., "sha256")
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-w int      refresh token renewal window, minutes
//
// args is filtered with flagx.FilterArgs first, so flags that belong to
// other components (like admin subcommands) are ignored.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, Flags)

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.Env, "e", config.Env, "environment (local, dev, prod)")
	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "address and port of the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port of the gRPC API")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.HashAlgorithm, "g", config.HashAlgorithm, "password hash algorithm")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	renewalWindow := fs.Int("w", int(config.RefreshTokenRenewalWindow.Minutes()), "refresh_token_renewal_window (in minutes)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// only explicitly set flags override, so sub-minute values from JSON survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		case "w":
			config.RefreshTokenRenewalWindow = time.Duration(*renewalWindow) * time.Minute
		}
	})

	return nil
}
