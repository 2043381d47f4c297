package cmd

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	RootCmdName  = "carchat"
	RootCmdShort = "Answer questions about the cars in stock"
	RootCmdLong  = `carchat answers free-text questions about a car inventory.

It extracts filters from the question with a language model, relaxes them until
something matches and summarizes the result. Statistics questions are answered
directly from the dataset.`

	serviceName = "carchat"
)

var (
	cfgFile string
	cfg     config.Config
	logger  = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

var RootCmd = &cobra.Command{
	Use:               RootCmdName,
	Short:             RootCmdShort,
	Long:              RootCmdLong,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(-1)
	}
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("data", "", "path to the car dataset JSON file")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: json or console")

	_ = viper.BindPFlag("data", flags.Lookup("data"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))

	RootCmd.AddCommand(ServeCmd, BotCmd, AskCmd, StatsCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	logger = newLogger(cmd.ErrOrStderr(), c.Log)
	return nil
}

// newLogger builds the process logger: JSON by default, human readable with
// format "console".
func newLogger(out io.Writer, c config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if c.Format == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		zl = zerolog.New(out)
	}
	return zl.Level(level).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
