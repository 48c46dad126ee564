package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subhound/subhound/internal/model"
	"github.com/subhound/subhound/internal/series"
)

func subscriptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "Inspect and manage detected subscriptions",
	}

	cmd.AddCommand(subscriptionsListCmd())
	cmd.AddCommand(subscriptionsExcludeCmd())
	cmd.AddCommand(subscriptionsUnexcludeCmd())

	return cmd
}

func subscriptionsListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List detected subscriptions",
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

			var statuses []model.SubscriptionStatus
			if status != "" {
				statuses = append(statuses, model.SubscriptionStatus(status))
			}

			subs, err := store.GetSubscriptions(ctx, statuses...)
			if err != nil {
				return fmt.Errorf("failed to list subscriptions: %w", err)
			}

			if len(subs) == 0 {
				fmt.Println("No subscriptions found")
				return nil
			}

			fmt.Printf("%-35s %-10s %-10s %10s  %s\n", "MERCHANT", "CADENCE", "STATUS", "AMOUNT", "SINCE")
			for _, sub := range subs {
				fmt.Printf("%-35s %-10s %-10s %10.2f  %s\n",
					sub.MerchantKey,
					sub.Periodicity,
					sub.Status,
					sub.Amount,
					sub.FirstSeen.Format("2006-01-02"))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (ACTIVE, ZOMBIE, CANCELLED, EXCLUDED)")

	return cmd
}

func subscriptionsExcludeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <merchant>",
		Short: "Mark a merchant as not-a-subscription",
		Long: `Records a user override for a merchant. An excluded merchant is never
flagged as a subscription again, regardless of how regular its charges
look, until the exclusion is reversed with unexclude.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setOverride(cmd, args[0], model.OverrideExcluded, model.StatusExcluded)
		},
	}
}

func subscriptionsUnexcludeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unexclude <merchant>",
		Short: "Reverse a merchant exclusion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setOverride(cmd, args[0], model.OverrideUnexcluded, model.StatusActive)
		},
	}
}

func setOverride(cmd *cobra.Command, merchant string, override model.UserOverride, status model.SubscriptionStatus) error {
	store, err := openStorage()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	merchantKey := series.NormalizeMerchant(merchant)

	if err := store.SetMerchantOverride(ctx, merchantKey, override); err != nil {
		return fmt.Errorf("failed to set override: %w", err)
	}

	// Keep any existing subscription rows in step with the override.
	subs, err := store.GetSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}
	for _, sub := range subs {
		if sub.MerchantKey != merchantKey {
			continue
		}
		if err := store.UpdateSubscriptionStatus(ctx, sub.ID, status); err != nil {
			return fmt.Errorf("failed to update subscription status: %w", err)
		}
	}

	fmt.Printf("Override for %s set to %s\n", merchantKey, override)
	return nil
}
