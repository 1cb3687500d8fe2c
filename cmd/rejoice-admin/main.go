package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/rejoiceinstitute/rejoice-web/config"
	"github.com/rejoiceinstitute/rejoice-web/internal/bootstrap"
	"github.com/rejoiceinstitute/rejoice-web/internal/migrate"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

// commandContext carries what every command needs. Profiles is opened lazily
// so commands that never touch the store do not need a database.
type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer

	profiles ports.ProfileStore
	db       *sql.DB
}

const defaultCommandTimeout = 2 * time.Minute

func main() {
	logger := bootstrap.InitLogger(os.Stderr, true, "info")

	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName)
		printUsage(os.Stderr)
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
	}
	runErr := cmd.run(cmdCtx, os.Args[2:])
	if closeErr := cmdCtx.Close(); closeErr != nil {
		logger.Warn("close connections failed", "error", closeErr)
	}
	if runErr != nil {
		logger.Error("command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Apply database migrations",
			run:         runMigrate,
		},
		"show-profile": {
			name:        "show-profile",
			description: "Print the stored profile for an account uid",
			run:         runShowProfile,
		},
		"list-profiles": {
			name:        "list-profiles",
			description: "List stored profiles, newest first",
			run:         runListProfiles,
		},
		"set-role": {
			name:        "set-role",
			description: "Change the role recorded on an account's profile",
			run:         runSetRole,
		},
		"resolve": {
			name:        "resolve",
			description: "Show which role the configured policy assigns to an email",
			run:         runResolve,
		},
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: rejoice-admin <command> [flags]\n\n")
	fmt.Fprintf(w, "Available commands:\n")
	all := commands()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, all[name].description)
	}
}

// Profiles returns the configured profile store, connecting on first use.
//
//nolint:ireturn // backend chosen by configuration.
func (c *commandContext) Profiles() (ports.ProfileStore, error) {
	if c.profiles != nil {
		return c.profiles, nil
	}
	if c.Config.NeedsPostgres() && c.db == nil {
		db, err := bootstrap.ConnectDB(c.Ctx, c.Config.Postgres, c.Logger)
		if err != nil {
			return nil, err
		}
		c.db = db
	}
	store, err := bootstrap.BuildProfileStore(c.Ctx, c.Config.Profiles, c.db)
	if err != nil {
		return nil, err
	}
	c.profiles = store
	return store, nil
}

func (c *commandContext) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func runMigrate(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 5*time.Minute, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmdCtx.Config.Profiles.Backend != config.ProfileBackendPostgres {
		return errors.New("migrate: PROFILES_BACKEND is not postgres")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	dbCfg := cmdCtx.Config.Postgres
	dbCfg.RunMigrationsOnStart = false
	db, err := bootstrap.ConnectDB(ctx, dbCfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	cmdCtx.db = db

	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	cmdCtx.Logger.Info("migrations applied")
	return nil
}
