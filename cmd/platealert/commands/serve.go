package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/wessley-plates/engine/pipeline"
)

func (a *App) installServe() error {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the service",
		Long: "Run the service: accept storage events over HTTP, from the NATS subject " +
			"when one is configured, and from the storage directory when watching is enabled.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	d := defaultConfig()
	cmd.Flags().String("addr", d.HTTP.Addr, "HTTP listen address")
	cmd.Flags().String("nats-url", d.NATS.URL, "NATS server URL")
	cmd.Flags().Bool("watch", d.Storage.Watch, "watch the storage root for new objects")

	for key, flag := range map[string]string{
		"http.addr":     "addr",
		"nats.url":      "nats-url",
		"storage.watch": "watch",
	} {
		if err := a.bindFlag(cmd.Flags(), key, flag); err != nil {
			return err
		}
	}
	a.cmd.AddCommand(cmd)
	return nil
}

func (a *App) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := a.wire(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if subject := a.config.NATS.Subject; subject != "" {
		nc, err := c.connectNATS(a.config.NATS)
		if err != nil {
			return err
		}
		sub, err := pipeline.StartConsumer(nc, subject, a.config.NATS.Queue, c.pipeline, a.log)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		defer sub.Unsubscribe()
		a.log.Info("consuming storage events", "subject", subject, "queue", a.config.NATS.Queue)
	}

	if a.config.Storage.Watch {
		errs, err := pipeline.NewWatcher(a.config.Storage.Root, c.pipeline, a.log,
			pipeline.WithSettle(a.config.Storage.Settle)).Watch(ctx)
		if err != nil {
			return err
		}
		go func() {
			for err := range errs {
				a.log.Error("storage watcher stopped", "error", err)
				stop()
			}
		}()
	}

	srv := &http.Server{
		Addr:         a.config.HTTP.Addr,
		Handler:      newHandler(c.pipeline, c.registry, a.config.HTTP.MaxBodyBytes, a.log),
		ReadTimeout:  a.config.HTTP.ReadTimeout,
		WriteTimeout: a.config.HTTP.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
