package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apphttp "saldo/internal/http"
	"saldo/internal/log"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			if port != "" {
				a.cfg.Port = port
			}

			ctx := cmd.Context()
			res, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer a.closeBackend(res)

			srv := apphttp.NewServer(":"+a.cfg.Port, a.newService(res), a.logger, apphttp.Options{AllowedOrigins: a.cfg.CORSAllowedOrigins})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.Info("Starting saldo server",
					"port", a.cfg.Port,
					log.FieldBackend, a.cfg.DataBackend,
					"notifications", res.Publisher != nil)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				a.logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				return err
			}
			a.logger.Info("Server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port; overrides PORT")
	return cmd
}
