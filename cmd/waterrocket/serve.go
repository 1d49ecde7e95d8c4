package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"github.com/waterrocket/simulator/internal/api"
	"github.com/waterrocket/simulator/internal/config"
)

const shutdownTimeout = 10 * time.Second

// serveCommand exposes the runner over HTTP until interrupted.
func serveCommand(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("serve")
	fs.String("listen", "", "address to listen on, overrides http.listen")
	fs.String("api-key", "", "require this key on requests that launch or discard runs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	configErr := loadConfig(fs)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, configErr)
	if err != nil {
		return err
	}
	// ctx is already cancelled by the time Close runs
	defer a.Close(context.WithoutCancel(ctx))

	opts := api.Options{
		DefaultInput: config.GetLaunchInput(),
		DefaultSite:  config.GetLaunchSite(),
		Logger:       a.log,
		APIKey:       viper.GetString("http.apiKey"),
	}
	if a.registry != nil {
		opts.Metrics = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
	}

	srv := &http.Server{
		Addr:              viper.GetString("http.listen"),
		Handler:           api.NewServer(a.runner, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("HTTP API listening", "addr", srv.Addr, "metrics", a.registry != nil)
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(out, "%s listening on %s\n", appName, srv.Addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
