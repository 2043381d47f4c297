package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const (
	AskCmdName  = "ask"
	AskCmdShort = "Answer one question and exit"
)

var AskCmd = &cobra.Command{
	Use:   AskCmdName + " <question>",
	Short: AskCmdShort,
	Args:  cobra.MinimumNArgs(1),
	RunE:  askCmdFunc,
}

func askCmdFunc(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	if err := a.withModel(cfg); err != nil {
		return err
	}

	reply, err := a.chat.Handle(cmd.Context(), strings.Join(args, " "))
	fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
	return err
}
