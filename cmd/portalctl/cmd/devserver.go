package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ampm-club/portal/internal/config"
	"github.com/ampm-club/portal/internal/portaltest"
	"github.com/ampm-club/portal/internal/session"
)

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run a local in-memory portal backend",
	Long: `dev-server starts a self-contained portal backend with in-memory state,
seeded with a staff account (student number "admin", password "admin").
Point the client at it with --api-base or AMPM_API_BASE.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		backend := portaltest.NewServer(cfg.DevServer, logger)
		backend.SetBaseURL("http://" + cfg.DevServer.Address())
		if _, err := backend.Seed("Administrator", "admin", "admin", session.RoleStaff); err != nil {
			return fmt.Errorf("seed admin account: %w", err)
		}

		srv := &http.Server{
			Addr:         cfg.DevServer.Address(),
			Handler:      backend.Router(),
			ReadTimeout:  cfg.DevServer.ReadTimeout,
			WriteTimeout: cfg.DevServer.WriteTimeout,
			IdleTimeout:  cfg.DevServer.IdleTimeout,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("dev portal listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(devServerCmd)
}
