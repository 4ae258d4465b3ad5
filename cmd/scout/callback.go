package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/FranksOps/scout/internal/callback"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newCallbackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "callback",
		Short: "Serve the OAuth redirect endpoint that echoes the authorization code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := callback.NewServer(a.cfg.Callback.Addr, a.logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.ListenAndServe)
			g.Go(func() error {
				<-gctx.Done()
				a.logger.Info("shutting down callback server")
				return srv.Shutdown(context.Background())
			})
			return g.Wait()
		},
	}
	cmd.Flags().String("addr", callback.DefaultAddr, "listen address")
	return cmd
}
