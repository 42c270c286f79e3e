// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/census-viewer/internal/catalog"
	"github.com/pdiddy/census-viewer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard JSON API",
	Long: `Serve loads the reference catalogs once and runs the HTTP API the
dashboard UI renders. It shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx, err := catalog.NewIndex(ctx, a.cat)
	if err != nil {
		return err
	}
	defer idx.Close()

	h := server.NewHandler(a.cat, idx, a.view, a.cfg.Server.MappableCategories, a.log)
	e := server.New(h, a.log)

	a.log.WithFields(logrus.Fields{
		"addr":       a.cfg.Server.Addr,
		"states":     len(a.cat.States()),
		"categories": len(a.cat.Categories()),
	}).Info("serving census API")
	return server.Serve(ctx, e, a.cfg.Server.Addr, a.cfg.Server.ShutdownTimeout)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8050)")
	if err := viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(serveCmd)
}
