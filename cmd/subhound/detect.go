package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subhound/subhound/internal/engine"
	"github.com/subhound/subhound/internal/model"
)

func detectCmd() *cobra.Command {
	var only string
	var account string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run recurring-charge detection",
		Long: `Builds charge series from imported transactions, classifies
subscriptions, and runs the zombie, price-increase, and duplicate-service
detectors. Use --only to run a single detector.`,
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

			opts, err := engineOptions()
			if err != nil {
				return err
			}

			eng, err := engine.New(store, engineConfig(), opts...)
			if err != nil {
				return err
			}

			scope := engine.RunScope{AccountID: account}

			var results model.DetectionResults
			switch only {
			case "":
				results, err = eng.DetectAll(ctx, scope)
			case "zombies":
				results, err = eng.DetectZombiesOnly(ctx, scope)
			case "increases":
				results, err = eng.DetectIncreasesOnly(ctx, scope)
			case "duplicates":
				results, err = eng.DetectDuplicatesOnly(ctx, scope)
			default:
				return fmt.Errorf("invalid --only value %q (want zombies, increases, or duplicates)", only)
			}
			if err != nil {
				return fmt.Errorf("detection failed: %w", err)
			}

			fmt.Printf("Subscriptions found:  %d\n", results.SubscriptionsFound)
			fmt.Printf("Zombies detected:     %d\n", results.ZombiesDetected)
			fmt.Printf("Price increases:      %d\n", results.PriceIncreasesDetected)
			fmt.Printf("Duplicate services:   %d\n", results.DuplicatesDetected)

			return nil
		},
	}

	cmd.Flags().StringVar(&only, "only", "", "run a single detector (zombies, increases, duplicates)")
	cmd.Flags().StringVar(&account, "account", "", "limit detection to one account")

	return cmd
}
