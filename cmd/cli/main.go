package main

import (
	"context"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/admindash/cmd/cli/internal/commands"
	"github.com/wolfeidau/admindash/internal/config"
	"github.com/wolfeidau/admindash/internal/logger"
	"github.com/wolfeidau/admindash/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Login     commands.LoginCmd     `cmd:"" help:"Log in and store the session"`
		Logout    commands.LogoutCmd    `cmd:"" help:"End the session"`
		Status    commands.StatusCmd    `cmd:"" help:"Validate the stored session"`
		Sessions  commands.SessionsCmd  `cmd:"" help:"Manage stored sessions"`
		Stats     commands.StatsCmd     `cmd:"" help:"Show dashboard counters"`
		Profile   commands.ProfileCmd   `cmd:"" help:"Show or update the admin profile"`
		Resources commands.ResourcesCmd `cmd:"" help:"List managed resources"`
		List      commands.ListCmd      `cmd:"" help:"List a resource"`
		Create    commands.CreateCmd    `cmd:"" help:"Create an entity"`
		Update    commands.UpdateCmd    `cmd:"" help:"Update an entity"`
		Delete    commands.DeleteCmd    `cmd:"" help:"Delete an entity"`
		SetStatus commands.SetStatusCmd `cmd:"" name:"set-status" help:"Change an entity's status"`
		Action    commands.ActionCmd    `cmd:"" help:"Run a resource action"`
		Shell     commands.ShellCmd     `cmd:"" help:"Interactive dashboard shell"`

		Server         string           `help:"Admin API URL" default:"http://localhost:8080" env:"ADMINDASH_SERVER"`
		Timeout        time.Duration    `help:"Request timeout" default:"15s" env:"ADMINDASH_TIMEOUT"`
		CredentialsDir string           `help:"Credentials directory (default ~/.admindash)" env:"ADMINDASH_CREDENTIALS_DIR"`
		CacheDir       string           `help:"HTTP cache directory, in memory when empty" env:"ADMINDASH_CACHE_DIR"`
		NoCache        bool             `help:"Disable the HTTP cache"`
		Tracing        bool             `help:"Export traces and metrics over OTLP" env:"ADMINDASH_TRACING"`
		Config         kong.ConfigFlag  `help:"YAML config file"`
		Debug          bool             `help:"Enable debug mode."`
		Version        kong.VersionFlag `help:"Print version"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("admindash"),
		kong.Description("Admin console for the store and content backend."),
		kong.Configuration(config.YAML, config.DefaultPath()),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	shutdown := telemetry.ShutdownFunc(telemetry.Noop)
	if cli.Tracing {
		var err error
		shutdown, err = telemetry.InitTelemetry(ctx, "admindash-cli", version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
			shutdown = telemetry.Noop
		}
	}

	err := cmd.Run(&commands.Globals{
		Debug:          cli.Debug,
		Version:        version,
		Server:         cli.Server,
		Timeout:        cli.Timeout,
		CredentialsDir: cli.CredentialsDir,
		CacheDir:       cli.CacheDir,
		NoCache:        cli.NoCache,
	})

	if shutdownErr := shutdown(context.Background()); shutdownErr != nil {
		log.Debug().Err(shutdownErr).Msg("Failed to shutdown telemetry")
	}

	cmd.FatalIfErrorf(err)
}
