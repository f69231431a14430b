package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deeprisk/fee-risk-system/internal/pkg/config"
	"github.com/deeprisk/fee-risk-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:           "feerisk",
		Short:         "Medical fee risk gateway, query service and risk worker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(gatewayCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(workerCmd())

	if err := rootCmd.Execute(); err != nil {
		errLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		errLog.Error().Err(err).Msg("feerisk exited")
		os.Exit(1)
	}
}

// bootstrap loads configuration and initialises the process logger. The
// port flag, when set, overrides PORT.
func bootstrap(cmd *cobra.Command, service string) (*config.Config, zerolog.Logger) {
	cfg := config.Load()
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	name := cfg.ServiceName + "-" + service
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: name,
	})
	return cfg, log
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// serve runs e on port until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, e *echo.Echo, port string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", port).Msg("server listening")
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
