package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gennadis/facultydash/internal/auth"
	"github.com/gennadis/facultydash/internal/config"
	"github.com/gennadis/facultydash/internal/logger"
	"github.com/gennadis/facultydash/internal/notify"
	"github.com/gennadis/facultydash/internal/observability"
	"github.com/gennadis/facultydash/internal/session"
	"github.com/gennadis/facultydash/internal/workspace"
	"github.com/gennadis/facultydash/storage"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:          "facultydash",
	Short:        "Faculty dashboard client: session materials, AI summaries and plans, student mail",
	SilenceUsage: true,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive dashboard shell",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.close(ctx)

		return newShell(a, cmd.InOrStdin(), cmd.OutOrStdout()).run(ctx)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check credentials and print the assigned courses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("FACULTYDASH_PASSWORD")
		}
		if email == "" || password == "" {
			return errors.New("--email and --password (or FACULTYDASH_PASSWORD) are required")
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer a.close(ctx)

		profile, err := a.auth.Login(ctx, email, password)
		if err != nil {
			return errors.Wrap(err, "login failed")
		}
		defer a.auth.Logout(ctx)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Signed in as %s\n", profile.FacultyEmail)
		printCourses(out, session.NewSelector(profile.Courses))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	loginCmd.Flags().String("email", "", "faculty email")
	loginCmd.Flags().String("password", "", "password")

	rootCmd.AddCommand(shellCmd, loginCmd)
}

// app is the wired dashboard: config, logging, storage, auth and workspace
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *sqlx.DB
	auth   *auth.AuthenticationHandler
	visits *storage.Contexts
	ws     *workspace.Workspace

	shutdownTracing func(context.Context) error
}

func newApp(ctx context.Context, out io.Writer) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logger")
	}

	a := &app{cfg: cfg, log: log}
	if cfg.OtelEnabled {
		shutdown, err := observability.InitTracing(ctx, log, os.Stderr, version)
		if err != nil {
			log.Warn("Tracing disabled", "error", err)
		} else {
			a.shutdownTracing = shutdown
		}
	}

	a.db, err = storage.NewSqliteDB(cfg.StorageDSN)
	if err != nil {
		return nil, err
	}
	transcripts, err := storage.NewTranscripts(a.db, log)
	if err != nil {
		a.db.Close()
		return nil, err
	}
	a.visits, err = storage.NewContexts(a.db, log)
	if err != nil {
		a.db.Close()
		return nil, err
	}

	a.auth = auth.NewAuthenticationHandler(cfg, log)
	a.ws = workspace.New(a.auth.API(), transcripts,
		workspace.WithNotifier(notify.NewConsole(out)),
		workspace.WithLogger(log),
		workspace.WithVisits(a.visits),
		workspace.WithMailDismissDelay(cfg.MailDismissDelay),
	)

	log.Debug("Dashboard ready", "api_url", cfg.BaseURL, "env", cfg.Environment, "storage", cfg.StorageDSN)
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.log.Warn("Failed to flush traces", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("Failed to close storage", "error", err)
	}
	a.log.Sync()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
