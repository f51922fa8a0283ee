package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"

	"bundle-storefront/internal/adapters/gateway/paystack"
	httphandler "bundle-storefront/internal/adapters/http"
	"bundle-storefront/internal/adapters/messaging/kafka"
	"bundle-storefront/internal/adapters/messaging/mock"
	"bundle-storefront/internal/adapters/storage"
	"bundle-storefront/internal/app"
	"bundle-storefront/internal/config"
	"bundle-storefront/internal/core/domain"
	"bundle-storefront/internal/core/ports"
	"bundle-storefront/internal/observability"
)

func main() {
	var (
		configPath string
		cfg        *config.Config
		logger     *slog.Logger
	)

	rootCmd := &cobra.Command{
		Use:          "orders-cli",
		Short:        "Operator tooling for the bundle storefront",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logger = observability.NewLogger(cfg.App.Env, os.Stderr)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to the config file")

	openRepo := func(ctx context.Context) (ports.OrderRepository, error) {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return storage.Open(ctx, cfg)
	}
	verifier := func() ports.VerificationService {
		gw := paystack.NewClient(cfg.Paystack.BaseURL, cfg.PaystackSecretKey(), cfg.Paystack.Timeout)
		return app.NewVerificationService(gw, nil, logger)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored orders, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			repo, err := openRepo(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			var orders []domain.Order
			if status == "" {
				orders, err = repo.List(cmd.Context())
			} else {
				st, ok := domain.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				orders, err = repo.FindByStatus(cmd.Context(), st)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TRANSACTION ID\tCUSTOMER\tNETWORK\tBUNDLE\tAMOUNT\tSTATUS\tCREATED AT")
			for _, o := range orders {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					o.TransactionID, o.CustomerName, strings.ToUpper(o.Network), o.Bundle,
					o.Amount.StringFixed(2), o.Status, o.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().String("status", "", "only orders with this status (completed, pending_verification)")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the order history as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("out")
			repo, err := openRepo(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			if out == "" {
				out = "orders_" + time.Now().UTC().Format("2006-01-02") + ".csv"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			svc := app.NewOrderService(repo, mock.NewBroker(logger), domain.DefaultCatalog(), logger)
			n, err := svc.ExportOrders(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Printf("exported %d orders to %s\n", n, out)
			return nil
		},
	}
	exportCmd.Flags().String("out", "", "output file (default orders_YYYY-MM-DD.csv)")

	verifyCmd := &cobra.Command{
		Use:   "verify [reference]",
		Short: "Ask Paystack for the status of a payment reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := verifier().Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			amount := "-"
			if v.Amount != nil {
				amount = v.Amount.StringFixed(2)
			}
			fmt.Printf("reference=%s status=%s verified=%t amount=%s gateway_status=%s\n",
				v.Reference, v.Status, v.Verified(), amount, v.GatewayStatus)
			return nil
		},
	}

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Complete pending_verification orders the gateway has confirmed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := openRepo(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			report, err := app.NewReconciler(repo, verifier(), logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("checked=%d completed=%d pending=%d failed=%d skipped=%d\n",
				report.Checked, report.Completed, report.Pending, report.Failed, report.Skipped)
			return nil
		},
	}

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the bundle price list",
		RunE: func(_ *cobra.Command, _ []string) error {
			catalog := domain.DefaultCatalog()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NETWORK\tBUNDLE\tPRICE (GHS)\tVALIDITY")
			for _, n := range catalog.Networks() {
				for _, o := range catalog.Offers(n) {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d days\n", n.DisplayName(), o.DisplayName, o.Price.StringFixed(2), o.ValidityDays)
				}
			}
			return w.Flush()
		},
	}

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin token for /api/admin and the order history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			token, err := httphandler.IssueAdminToken(cfg.Admin.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	tokenCmd.Flags().String("subject", "operator", "token subject")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")

	rootCmd.AddCommand(listCmd, exportCmd, verifyCmd, reconcileCmd, catalogCmd, tokenCmd, newDLQCmd(&cfg, &logger))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newDLQCmd(cfg **config.Config, logger **slog.Logger) *cobra.Command {
	dlqCmd := &cobra.Command{Use: "dlq", Short: "Inspect and replay dead-lettered order events"}

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Show messages in the DLQ",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			c := *cfg
			client, err := kgo.NewClient(
				kgo.SeedBrokers(c.KafkaBrokers()...),
				kgo.ConsumerGroup("orders-cli-dlq-viewer"),
				kgo.ConsumeTopics(c.Kafka.DLQTopic),
				kgo.FetchMaxWait(5*time.Second),
				kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
			)
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}
			defer client.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PARTITION:OFFSET\tKEY\tERROR_TYPE\tERROR_STRING")

			count := 0
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			for count < limit {
				fetches := client.PollFetches(ctx)
				if fetches.IsClientClosed() || ctx.Err() != nil || len(fetches.Records()) == 0 {
					break
				}
				fetches.EachRecord(func(r *kgo.Record) {
					if count >= limit {
						return
					}
					errType, errString := kafka.ErrorHeaders(r.Headers)
					fmt.Fprintf(w, "%d:%d\t%s\t%s\t%s\n", r.Partition, r.Offset, string(r.Key), errType, errString)
					count++
				})
			}
			(*logger).Debug("dlq view finished", "messages", count)
			return w.Flush()
		},
	}
	viewCmd.Flags().Int("limit", 10, "number of messages to show")

	retryCmd := &cobra.Command{
		Use:   "retry [partition:offset]",
		Short: "Send one DLQ message back to the orders topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			partition, offset, err := parsePartitionOffset(args[0])
			if err != nil {
				return err
			}

			consumer, err := kgo.NewClient(
				kgo.SeedBrokers(c.KafkaBrokers()...),
				kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{
					c.Kafka.DLQTopic: {partition: kgo.NewOffset().At(offset)},
				}),
			)
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}
			defer consumer.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			fetches := consumer.PollRecords(ctx, 1)
			if err := fetches.Err(); err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}
			records := fetches.Records()
			if len(records) == 0 {
				return fmt.Errorf("no message at %s", args[0])
			}

			producer, err := kgo.NewClient(kgo.SeedBrokers(c.KafkaBrokers()...))
			if err != nil {
				return fmt.Errorf("failed to create producer: %w", err)
			}
			defer producer.Close()

			retry := &kgo.Record{Topic: c.Kafka.Topic, Key: records[0].Key, Value: records[0].Value}
			if err := producer.ProduceSync(ctx, retry).FirstErr(); err != nil {
				return fmt.Errorf("failed to resend message: %w", err)
			}
			(*logger).Info("message resent", "partition", partition, "offset", offset, "topic", c.Kafka.Topic)
			return nil
		},
	}

	dlqCmd.AddCommand(viewCmd, retryCmd)
	return dlqCmd
}

// parsePartitionOffset parses "partition:offset".
func parsePartitionOffset(arg string) (int32, int64, error) {
	parts := strings.Split(arg, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid format %q, expected partition:offset (e.g. 0:123)", arg)
	}
	partition, err := strconv.ParseInt(parts[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid partition: %w", err)
	}
	offset, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid offset: %w", err)
	}
	return int32(partition), offset, nil
}
