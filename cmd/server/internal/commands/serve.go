package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/wolfeidau/admindash/internal/auth"
	"github.com/wolfeidau/admindash/internal/logger"
	"github.com/wolfeidau/admindash/internal/login"
	"github.com/wolfeidau/admindash/internal/server"
	"github.com/wolfeidau/admindash/internal/store"
	memorystore "github.com/wolfeidau/admindash/internal/store/memory"
	postgresstore "github.com/wolfeidau/admindash/internal/store/postgres"
	"github.com/wolfeidau/admindash/internal/telemetry"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"ADMINDASH_LISTEN"`
	Cert   string `help:"path to TLS cert file, serves plain HTTP when empty" default:"" env:"ADMINDASH_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"ADMINDASH_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for browser dashboards" env:"ADMINDASH_CORS_ORIGINS"`

	// Session configuration
	SessionSecret string        `help:"secret for signing session tokens, at least 32 bytes" env:"ADMINDASH_SESSION_SECRET"`
	SessionTTL    time.Duration `help:"session TTL" default:"24h" env:"ADMINDASH_SESSION_TTL"`
	SecureCookies bool          `help:"mark the session cookie Secure" default:"false" env:"ADMINDASH_SECURE_COOKIES"`

	// Bootstrap admin account, created or reset on start
	AdminName     string `help:"bootstrap admin display name" default:"Administrator" env:"ADMINDASH_ADMIN_NAME"`
	AdminEmail    string `help:"bootstrap admin email" env:"ADMINDASH_ADMIN_EMAIL"`
	AdminPassword string `help:"bootstrap admin password" env:"ADMINDASH_ADMIN_PASSWORD"`

	// Development and operational modes
	Seed    bool `help:"load sample documents into empty collections" default:"false" env:"ADMINDASH_SEED"`
	Tracing bool `help:"enable tracing" default:"false" env:"ADMINDASH_TRACING"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"ADMINDASH_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"10"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`
	ConnectRetry    time.Duration `help:"how long to retry the initial connection, negative disables" default:"30s"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"ADMINDASH_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (s *PostgresStoreFlags) config() *postgresstore.Config {
	return &postgresstore.Config{
		ConnString:         s.ConnString,
		MaxConns:           s.MaxConns,
		MinConns:           s.MinConns,
		MaxConnLifetime:    s.MaxConnLifetime,
		MaxConnIdleTime:    s.MaxConnIdleTime,
		ConnectRetryWindow: s.ConnectRetry,
		AutoMigrate:        s.AutoMigrate,
	}
}

// Validate is called by kong once flags are parsed.
func (c *ServeCmd) Validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("session secret must be at least 32 bytes (--session-secret or ADMINDASH_SESSION_SECRET)")
	}
	if (c.Cert == "") != (c.Key == "") {
		return errors.New("TLS certificate and key must be given together (--cert and --key)")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("admin email and password must be given together")
	}
	if c.StoreType == "postgres" {
		return c.PostgresStore.validate()
	}
	return nil
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "admindash-server", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = telemetry.Noop
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	docs, admins, closeStores, err := c.openStores(ctx, log)
	if err != nil {
		return err
	}
	defer closeStores()

	if c.AdminEmail != "" {
		admin, err := login.EnsureAdmin(ctx, admins, c.AdminName, c.AdminEmail, c.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to bootstrap admin: %w", err)
		}
		log.Info().Str("email", admin.Email).Msg("Admin account ready")
	} else {
		log.Warn().Msg("No bootstrap admin configured (--admin-email), logins will fail on an empty store")
	}

	if c.Seed {
		if err := server.Seed(ctx, docs); err != nil {
			return err
		}
	}

	signer, err := auth.NewSigner([]byte(c.SessionSecret), c.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to create session signer: %w", err)
	}

	revocations := auth.NewRevocations(ctx, 5*time.Minute)
	defer revocations.Stop()

	handlers := login.New(admins, signer, revocations, login.WithSecureCookies(c.SecureCookies || c.Cert != ""))
	srv := server.NewServer(docs, admins, handlers)

	handler := srv.Handler(log, server.Options{CORSOrigins: c.CORSOrigins})

	if c.Cert != "" {
		if _, err := os.Stat(c.Cert); err != nil {
			return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
		}
		if _, err := os.Stat(c.Key); err != nil {
			return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
		}
	}

	log.Info().Str("addr", c.Listen).Bool("tls", c.Cert != "").Str("store", c.StoreType).Msg("Starting HTTP server")
	return serve(ctx, log, configureHTTPServer(c.Listen, handler), c.Cert, c.Key)
}

func (c *ServeCmd) openStores(ctx context.Context, log zerolog.Logger) (store.DocumentStore, store.AdminStore, func(), error) {
	switch c.StoreType {
	case "postgres":
		stores, err := postgresstore.Open(ctx, c.PostgresStore.config())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open postgres stores: %w", err)
		}
		log.Info().Bool("migrated", c.PostgresStore.AutoMigrate).Msg("Using PostgreSQL stores with shared connection pool")
		return stores.Documents, stores.Admins, stores.Close, nil

	default:
		log.Info().Msg("Using in-memory stores")
		return memorystore.NewDocumentStore(), memorystore.NewAdminStore(), func() {}, nil
	}
}
