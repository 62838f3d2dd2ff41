package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"saldo/internal/log"
	"saldo/internal/storage"
	"saldo/internal/worker"
)

func mirrorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mirror",
		Short: "Keep a SQLite copy of the ledger in step with the primary store",
		Long: `mirror consumes "transaction appended" notifications from AMQP and replays
them into a SQLite file at MIRROR_DB_PATH. Every SYNC_INTERVAL it also
compares the mirror with the primary store and rewrites it when they differ.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			if a.cfg.AMQPURL == "" {
				return errors.New("mirror requires AMQP_URL")
			}
			if a.cfg.DataBackend == "sqlite" && samePath(a.cfg.SQLiteDBPath, a.cfg.MirrorDBPath) {
				return errors.New("MIRROR_DB_PATH must differ from SQLITE_DB_PATH")
			}

			ctx := cmd.Context()
			res, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer a.closeBackend(res)
			if res.Publisher == nil {
				return errors.New("AMQP broker is unreachable")
			}

			repo, err := storage.NewSQLiteRepository(a.cfg.MirrorDBPath)
			if err != nil {
				return fmt.Errorf("open mirror: %w", err)
			}
			defer repo.Close()

			w := worker.NewMirrorWorker(res.Store, repo, a.logger)
			if _, err := w.Reconcile(ctx); err != nil {
				a.logger.Error("Startup reconcile failed", log.FieldError, err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				err := res.Publisher.ConsumeTransactionAppended(gctx, w.HandleTransactionAppended)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			g.Go(func() error {
				ticker := time.NewTicker(a.cfg.SyncInterval)
				defer ticker.Stop()
				for {
					select {
					case <-gctx.Done():
						return nil
					case <-ticker.C:
						if _, err := w.Reconcile(gctx); err != nil {
							a.logger.Error("Periodic reconcile failed", log.FieldError, err)
						}
					}
				}
			})

			a.logger.Info("Mirror worker running", "mirror", a.cfg.MirrorDBPath, "interval", a.cfg.SyncInterval)
			return g.Wait()
		},
	}
}

func samePath(a, b string) bool {
	x, errX := filepath.Abs(a)
	y, errY := filepath.Abs(b)
	return errX == nil && errY == nil && x == y
}
