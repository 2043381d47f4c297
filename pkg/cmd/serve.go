package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ServeCmdName  = "serve"
	ServeCmdShort = "Run the HTTP API"
	ServeCmdLong  = `Run the HTTP API serving /ask, /cars, /stats/*, /healthz and /metrics.

/ask is only served when a model API key is configured.`

	shutdownTimeout = 10 * time.Second
)

var (
	ServeCmd = &cobra.Command{
		Use:   ServeCmdName,
		Short: ServeCmdShort,
		Long:  ServeCmdLong,
		Args:  cobra.NoArgs,
		RunE:  serveCmdFunc(),
	}
)

func init() {
	ServeCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", ServeCmd.Flags().Lookup("addr"))
}

func serveCmdFunc() func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger.Info().Msg("Started serve cmd")

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		if err := a.withModel(cfg); err != nil {
			logger.Warn().Err(err).Msg("model disabled, /ask is not served")
		}

		serve := server.NewHTTPServer(cfg.Server.Addr, a.deps())
		return run(cmd.Context(), serve)
	}
}

// run serves until SIGINT or a listen failure, then shuts serve down
func run(ctx context.Context, serve *http.Server) error {
	signalCh := make(chan os.Signal, 1)
	errCh := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", serve.Addr).Msg("listening")
		if err := serve.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	signal.Notify(signalCh, os.Interrupt)
	defer signal.Stop(signalCh)

	var runErr error
	select {
	case sig := <-signalCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown the server...")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("Shutting down the server...")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := serve.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
