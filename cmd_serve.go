package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mzubac125/azure-sql-chatbot/internal/web"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat page over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := setup(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		a, cache, err := rt.newAgent(ctx)
		if err != nil {
			return err
		}

		addr := rt.cfg.HTTP.Address
		if serveAddr != "" {
			addr = serveAddr
		}
		sessions := web.NewSessions(rt.cfg.HTTP.SessionTTL)
		srv := &http.Server{
			Addr:              addr,
			Handler:           web.NewServer(a, rt.db, cache, sessions, rt.logger).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return sessions.Run(gctx, rt.logger)
		})
		g.Go(func() error {
			rt.logger.Info("listening", zap.String("addr", addr), zap.String("driver", rt.dialect.Driver))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			rt.logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides ADDR)")
}
