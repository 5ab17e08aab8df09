package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/pdfsplitter/internal/metrics"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the pdfsplitter HTTP API.

Routes:
  POST /process   - classify and split every PDF in {"folder_path": ...}
  POST /cut_pdf   - apply caller supplied cuts
  GET  /jobs/{id} - status and result of a job
  GET  /health    - liveness
  GET  /ready     - readiness of Redis, S3 and the report folder
  GET  /metrics   - Prometheus metrics

Examples:
  pdfsplitter serve              # listen on $PORT (default 5000)
  pdfsplitter serve --port 8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if servePort != "" {
			cfg.Server.Port = servePort
		}

		metrics.Init()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		mux := http.NewServeMux()
		a.orch.RegisterRoutes(mux)
		srv := &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		// Graceful shutdown
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		log.Info().Msg("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default $PORT or 5000)")

	rootCmd.AddCommand(serveCmd)
}
