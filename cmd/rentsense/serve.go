// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/rentsense/internal/dataset"
	"github.com/pdiddy/rentsense/internal/dialogue"
	"github.com/pdiddy/rentsense/internal/oracle"
	"github.com/pdiddy/rentsense/internal/server"
	"github.com/pdiddy/rentsense/pkg/types"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API for the map frontend",
	Long: `Serve loads the neighborhood dataset and exposes the dialogue engine over
HTTP. The server is stateless: each POST /api/chat carries the full
conversation state and receives the updated state with either the next
question or ranked results.

Endpoints:
  POST /api/chat        advance one conversation turn
  GET  /api/dimensions  list dimensions, answer labels and profiles
  GET  /health          liveness and dataset size`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, ds, err := openEngine(ctx, appCfg, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(appCfg.Server, engine, ds.Len(), logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openEngine loads the dataset and builds a controller around the
// configured oracle.
func openEngine(ctx context.Context, cfg types.AppConfig, log *zap.Logger) (*dialogue.Controller, *dataset.Dataset, error) {
	ds, err := dataset.Open(ctx, cfg.Dataset)
	if err != nil {
		return nil, nil, err
	}
	log.Info("dataset loaded", zap.String("source", ds.Source()), zap.Int("candidates", ds.Len()))

	o, err := oracle.FromConfig(cfg.Oracle, oracle.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("configuring oracle (use --provider none to run without one): %w", err)
	}
	log.Info("oracle configured", zap.String("provider", string(cfg.Oracle.Provider)), zap.String("model", cfg.Oracle.Model))

	engine, err := dialogue.New(cfg.Engine, ds, o)
	if err != nil {
		return nil, nil, err
	}
	return engine, ds, nil
}
