package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lvcoi/tubeproxy/internal/app"
	"github.com/lvcoi/tubeproxy/internal/config"
)

var listenFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if listenFlag != "" {
			cfg.ListenAddr = listenFlag
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := app.New(cfg)
		if err := a.Run(ctx); err != nil {
			return err
		}
		a.Logger().Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&listenFlag, "listen", "l", "", "listen address (overrides TUBEPROXY_LISTEN)")
}
