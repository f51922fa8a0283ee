package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"bundle-storefront/internal/core/domain"
)

// ExportHeader is the first row of every export.
var ExportHeader = []string{
	"Transaction ID",
	"Customer Name",
	"Email",
	"Phone",
	"Network",
	"Bundle",
	"Amount (GHS)",
	"Status",
	"Paystack Reference",
	"Date/Time",
	"Created At",
}

// ExportRow renders one order the way the export presents it.
func ExportRow(o domain.Order) []string {
	return []string{
		o.TransactionID,
		o.CustomerName,
		o.Email,
		o.Phone,
		strings.ToUpper(o.Network),
		o.Bundle,
		o.Amount.StringFixed(2),
		string(o.Status),
		o.GatewayReference,
		o.DateTime,
		o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ExportOrders writes the order history as CSV, newest first, and returns the number of data rows.
// encoding/csv quotes any field containing the delimiter, a quote or a newline and doubles inner quotes.
func (s *orderService) ExportOrders(ctx context.Context, w io.Writer) (int, error) {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return 0, err
	}
	return WriteCSV(w, orders)
}

func WriteCSV(w io.Writer, orders []domain.Order) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for i, o := range orders {
		if err := cw.Write(ExportRow(o)); err != nil {
			return i, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(orders), fmt.Errorf("flush csv: %w", err)
	}
	return len(orders), nil
}
