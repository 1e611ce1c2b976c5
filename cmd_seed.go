package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mzubac125/azure-sql-chatbot/internal/seed"
)

var seedRows int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert synthetic rows into the Members table",
	Long: `Inserts randomly generated members (branch, portfolio manager, profit, date
added within the last year) in a single transaction. Running it again adds
another batch; nothing is deduplicated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		s := seed.NewSeeder(rt.db, rt.dialect, rt.logger)
		s.Rows = seedRows
		n, err := s.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d rows into Members table.\n", n)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedRows, "rows", seed.DefaultRows, "number of rows to insert")
}
