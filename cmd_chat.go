package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Mzubac125/azure-sql-chatbot/internal/repl"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively on the command line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := setup(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		a, _, err := rt.newAgent(ctx)
		if err != nil {
			return err
		}
		return repl.Run(ctx, os.Stdin, os.Stdout, a)
	},
}
