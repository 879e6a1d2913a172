package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"royale-audit/internal/handler"
	"royale-audit/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the rendered pages, the report API and metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadedConfig(cmd)
			if err != nil {
				return err
			}
			live := cfg.API.Key != ""
			a, err := setup(cmd, live)
			if err != nil {
				return err
			}
			defer a.Close()
			if !live {
				logger.Warn("serve.offline", "reason", "no api key, refresh disabled")
			}

			if !globalFlags.debug {
				gin.SetMode(gin.ReleaseMode)
			}
			h := handler.NewReportHandler(a.runner, live)
			srv := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           handler.NewRouter(h, a.registry, cfg.Report.OutputDir),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				logger.Info("server starting", "addr", srv.Addr)
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				logger.Info("server stopping")
				return srv.Shutdown(shutdownCtx)
			})
			if a.reloader != nil {
				g.Go(func() error { return a.reloader.Watch(ctx) })
			}
			return g.Wait()
		},
	}
}
