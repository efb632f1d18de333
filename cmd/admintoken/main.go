// Package main mints an admin bearer token for the /v1/admin endpoints.
//
// Usage:
//
//	ADMIN_JWT_SIGNING_KEY=... admintoken -subject alice
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tenkimap/tenkimap/internal/auth"
	"github.com/tenkimap/tenkimap/internal/config"
)

func main() {
	subject := flag.String("subject", "", "operator the token is issued to (required)")
	expiry := flag.Duration("expiry", auth.DefaultTokenExpiry, "token lifetime")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: cfg.AdminJWTSigningKey,
		Expiry:     *expiry,
	})

	token, expiresAt, err := jwtService.GenerateAdminToken(*subject)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to mint admin token")
	}

	log.Info().
		Str("subject", *subject).
		Time("expires_at", expiresAt.Truncate(time.Second)).
		Msg("admin token issued")
	fmt.Println(token)
}
