package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xhad/ragchat/pkg/source"
	"github.com/xhad/ragchat/server"
)

var servePopulate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket API",
	Long: `Runs the chat API. With --populate (the default) an empty store is
filled from the configured source before the server starts, and a failed
ingestion stops the server from starting.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&servePopulate, "populate", true, "populate an empty store from the configured source on startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePopulate {
		srcConfig := a.cfg.SourceConfig()
		srcConfig.Logger = a.logger
		src, err := source.New(srcConfig)
		if err != nil {
			return err
		}
		if _, err := a.service.Populate(ctx, src); err != nil {
			return fmt.Errorf("failed to populate store: %w", err)
		}
	}

	srv := server.New(a.service, server.Config{
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		DefaultTopK:    a.cfg.Retrieval.TopK,
		MaxDepth:       a.cfg.Source.MaxDepth,
		RateLimit:      a.cfg.Source.RateLimit,
		Logger:         a.logger,
	})
	return srv.Run(ctx, a.cfg.Addr())
}
