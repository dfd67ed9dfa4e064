package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"langclass/db"
	qhttp "langclass/http"
	"langclass/monitoring"
	"langclass/registry"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket classification server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.HTTP.Port = port
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override http.port")
	return cmd
}

func (a *app) runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := a.logger
	metrics := monitoring.NewMetrics()
	reg, err := registry.New(a.cfg.Cache.Size, logger, metrics)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(a.cfg.Serve.Models))
	for name := range a.cfg.Serve.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := reg.LoadFile(name, a.cfg.Serve.Models[name]); err != nil {
			return fmt.Errorf("load model %s: %w", name, err)
		}
	}
	if a.cfg.Serve.Active != "" {
		if err := reg.SetActive(a.cfg.Serve.Active); err != nil {
			return err
		}
	}

	var store *db.Store
	if a.cfg.Database.Path != "" {
		store, err = a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("database initialized", zap.String("path", a.cfg.Database.Path))
	}

	if a.cfg.Serve.Watch {
		go func() {
			if err := reg.Watch(ctx, nil); err != nil {
				logger.Error("model watcher stopped", zap.Error(err))
			}
		}()
	}

	api := qhttp.NewAPI(reg, store, metrics, logger, qhttp.TrainingConfig{
		MaxTreeDepth: a.cfg.ML.MaxTreeDepth,
		ModelDir:     a.cfg.ML.ModelDir,
	})
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           a.cfg.HTTP.Port,
		Timeout:        a.cfg.HTTP.Timeout,
		AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   a.cfg.HTTP.MaxBodyBytes,
	}, api)

	errc := make(chan error, 1)
	go func() { errc <- server.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
	return nil
}
