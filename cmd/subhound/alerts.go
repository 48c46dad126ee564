package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subhound/subhound/internal/model"
)

func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect detection alerts",
	}

	cmd.AddCommand(alertsListCmd())

	return cmd
}

func alertsListCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts from detection runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			var kinds []model.AlertKind
			if kind != "" {
				kinds = append(kinds, model.AlertKind(kind))
			}

			alerts, err := store.GetAlerts(ctx, kinds...)
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}

			if len(alerts) == 0 {
				fmt.Println("No alerts found")
				return nil
			}

			for _, alert := range alerts {
				fmt.Printf("[%s] %s\n", alert.Kind, alert.CreatedAt.Format("2006-01-02"))
				fmt.Printf("  %s\n", alert.Evidence)
				if alert.Kind == model.AlertPriceIncrease {
					fmt.Printf("  %.2f -> %.2f\n", alert.OldAmount, alert.NewAmount)
				}
				if alert.Explanation != "" {
					fmt.Printf("  %s\n", alert.Explanation)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (ZOMBIE, PRICE_INCREASE, DUPLICATE)")

	return cmd
}
