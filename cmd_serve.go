package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/handlers"
	"github.com/ferreirogomes/fnft/listener"
	"github.com/ferreirogomes/fnft/storage"
)

var (
	_ listener.Source     = (*chain.Local)(nil)
	_ listener.Store      = (*storage.DB)(nil)
	_ handlers.EventStore = (*storage.DB)(nil)
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Roda a cadeia local atrás da API HTTP",
		Long: `Hospeda uma cadeia em processo e a expõe via HTTP.

Quando server.database_url (ou DATABASE_URL) está definido, os eventos
confirmados são indexados no PostgreSQL e servidos em /vaults/{address}/events.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			restore := zap.RedirectStdLog(logger.Named("http"))
			defer restore()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := chain.NewLocal(cfg.Network.ChainID, logger)

			var (
				events handlers.EventStore
				wg     sync.WaitGroup
			)
			if cfg.Server.DatabaseURL != "" {
				db, err := storage.NewDB(cfg.Server.DatabaseURL, logger.Named("storage"))
				if err != nil {
					return err
				}
				defer db.Close()
				events = db

				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = listener.Follow(ctx, c, 1024, db, logger)
				}()
			} else {
				logger.Warn("nenhum banco de dados configurado, índice de eventos desativado")
			}

			srv := &http.Server{
				Addr:              cfg.Server.ListenAddr,
				Handler:           handlers.NewRouter(c, events, cfg.Server.APIKey),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			logger.Info("servidor backend rodando",
				zap.String("addr", cfg.Server.ListenAddr),
				zap.Uint64("chain_id", c.ChainID()),
				zap.Bool("api_key", cfg.Server.APIKey != ""))

			select {
			case err := <-errCh:
				stop()
				wg.Wait()
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serve: %w", err)
			case <-ctx.Done():
			}

			logger.Info("encerrando servidor")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			wg.Wait()
			return nil
		},
	}
}
