package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bundle-storefront/internal/analytics"
	"bundle-storefront/internal/config"
)

func main() {
	var (
		configPath string
		since      time.Duration
		store      *analytics.Store
	)

	rootCmd := &cobra.Command{
		Use:          "sales-report",
		Short:        "Query order facts in ClickHouse",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			store, err = analytics.Open(ctx, cfg.ClickHouse)
			return err
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if store == nil {
				return nil
			}
			return store.Close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to the config file")
	rootCmd.PersistentFlags().DurationVar(&since, "since", 7*24*time.Hour, "look back this far")

	byNetworkCmd := &cobra.Command{
		Use:   "by-network",
		Short: "Completed orders and revenue per network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := store.SalesByNetwork(cmd.Context(), time.Now().UTC().Add(-since))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NETWORK\tORDERS\tREVENUE (GHS)")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%d\t%s\n", r.Network, r.Orders, r.Revenue.StringFixed(2))
			}
			return w.Flush()
		},
	}

	topBundlesCmd := &cobra.Command{
		Use:   "top-bundles",
		Short: "Best selling bundles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			rows, err := store.TopBundles(cmd.Context(), time.Now().UTC().Add(-since), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NETWORK\tBUNDLE\tORDERS\tREVENUE (GHS)")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Network, r.Bundle, r.Orders, r.Revenue.StringFixed(2))
			}
			return w.Flush()
		},
	}
	topBundlesCmd.Flags().Int("limit", 10, "number of bundles to show")

	reviewCmd := &cobra.Command{
		Use:   "review-queue",
		Short: "Orders flagged for operator review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			rows, err := store.ReviewQueue(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "TRANSACTION ID\tNETWORK\tBUNDLE\tAMOUNT\tSTATUS\tREASON\tCREATED AT")
			for _, f := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					f.TransactionID, f.Network, f.Bundle, f.Amount.StringFixed(2), f.Status, f.ReviewReason, f.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	reviewCmd.Flags().Int("limit", 20, "number of orders to show")

	rootCmd.AddCommand(byNetworkCmd, topBundlesCmd, reviewCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
