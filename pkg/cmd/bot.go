package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/server"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/telegram"
	"github.com/spf13/cobra"
)

const (
	BotCmdName  = "bot"
	BotCmdShort = "Run the Telegram bot"
	BotCmdLong  = `Run the Telegram bot, answering every text message in the chat it came from.

When metrics.addr is set, /healthz and /metrics are served on that address.`
)

var BotCmd = &cobra.Command{
	Use:   BotCmdName,
	Short: BotCmdShort,
	Long:  BotCmdLong,
	Args:  cobra.NoArgs,
	RunE:  botCmdFunc,
}

func botCmdFunc(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateTelegram(); err != nil {
		return err
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	if err := a.withModel(cfg); err != nil {
		return err
	}

	api, err := telegram.Connect(cfg.Telegram.Token, cfg.Telegram.Debug)
	if err != nil {
		return err
	}
	logger.Info().Str("username", api.Self.UserName).Msg("telegram authorized")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if cfg.Metrics.Addr != "" {
		ms := server.NewHTTPServer(cfg.Metrics.Addr, server.Deps{Metrics: a.metrics, Log: a.log})
		go func() {
			logger.Info().Str("addr", ms.Addr).Msg("serving metrics")
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer ms.Shutdown(context.Background())
	}

	bot := telegram.New(api, a.chat, cfg.Telegram.Timeout, a.log.With().Str("component", "telegram").Logger())
	return bot.Run(ctx)
}
