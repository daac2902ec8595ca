// Package cmd provides the portalctl CLI commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ampm-club/portal/internal/admin"
	"github.com/ampm-club/portal/internal/api"
	"github.com/ampm-club/portal/internal/auth"
	"github.com/ampm-club/portal/internal/config"
	"github.com/ampm-club/portal/internal/exhibit"
	"github.com/ampm-club/portal/internal/poll"
	"github.com/ampm-club/portal/internal/session"
	"github.com/ampm-club/portal/internal/student"
)

var (
	debug   bool
	apiBase string
)

var rootCmd = &cobra.Command{
	Use:   "portalctl",
	Short: "AM:PM club portal client",
	Long: `portalctl is the command-line client for the AM:PM algorithm club portal.

It signs in against the portal backend, keeps the session in the user state
directory, and exposes the portal features: the leaderboard, polls, the
project showcase, and account management.

The access token lives in memory only; across invocations the session is
re-established silently through the persisted refresh cookie.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "portal API base URL (overrides AMPM_API_BASE)")
}

// app wires the configuration, the session store, the dispatcher, and the
// feature services for one command invocation.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *session.Store
	jar      *api.PersistentJar
	client   *api.Client
	auth     *auth.Service
	students *student.Service
	polls    *poll.Service
	exhibits *exhibit.Service
	admins   *admin.Service
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiBase != "" {
		cfg.API.BaseURL = strings.TrimRight(apiBase, "/")
	}

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store := session.NewStore(cfg.Session.ProfilePath(), logger)
	jar, err := api.NewPersistentJar(filepath.Join(cfg.Session.StateDir, "cookies.json"), cfg.API.BaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open cookie store: %w", err)
	}

	client := api.NewClient(cfg.API, store, api.WithLogger(logger), api.WithCookieJar(jar))

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		jar:      jar,
		client:   client,
		auth:     auth.NewService(client, logger),
		students: student.NewService(client, logger),
		polls:    poll.NewService(client, logger),
		exhibits: exhibit.NewService(client, cfg.GitHub.Token, logger),
		admins:   admin.NewService(client, logger),
	}, nil
}

// ensureSession makes sure a token is available, bootstrapping from the
// persisted refresh cookie when this invocation has none yet.
func (a *app) ensureSession(ctx context.Context) error {
	if a.store.Token() != "" {
		return nil
	}
	if !a.auth.Bootstrap(ctx) {
		return fmt.Errorf("not signed in; run 'portalctl login'")
	}
	return nil
}
