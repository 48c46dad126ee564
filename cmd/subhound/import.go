package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/subhound/subhound/internal/common"
	"github.com/subhound/subhound/internal/importer"
)

func importCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV file",
		Long: `Imports transactions from a CSV file with columns:
date,amount,description[,account_id]. Re-importing the same file is
idempotent; rows already present are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = file.Close() }()

			transactions, err := importer.ParseCSV(file, account)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("could not parse %s", args[0]), err)
			}
			if len(transactions) == 0 {
				fmt.Println("No transactions found in file")
				return nil
			}

			store, err := openStorage()
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			if err := store.SaveTransactions(ctx, transactions); err != nil {
				return fmt.Errorf("failed to save transactions: %w", err)
			}

			fmt.Printf("Imported %d transactions\n", len(transactions))
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "account ID for rows without an account column")

	return cmd
}
