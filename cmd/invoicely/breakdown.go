package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/smallbiznis/invoicely/internal/config"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
	"github.com/smallbiznis/invoicely/internal/money"
	"github.com/smallbiznis/invoicely/internal/vat"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var breakdownCmd = &cobra.Command{
	Use:   "breakdown <invoice-id>",
	Short: "Print the per-rate VAT breakdown of an invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			invoices invoicedomain.Service
			business *config.BusinessConfigHolder
		)
		app := fx.New(infra(), domains(), fx.Populate(&invoices, &business))

		return runOnce(cmd.Context(), app, func(ctx context.Context) error {
			detail, err := invoices.GetInvoice(ctx, args[0])
			if err != nil {
				return err
			}
			printBreakdown(cmd.OutOrStdout(), detail.Number, detail.Breakdown, business.Get().Currency)
			return nil
		})
	},
}

func printBreakdown(out io.Writer, number string, b vat.Breakdown, currency string) {
	fmt.Fprintf(out, "Invoice %s\n\n", number)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "RATE\tNET\tVAT\tGROSS\t")
	for _, bucket := range b.PerRate {
		fmt.Fprintf(w, "%d%%\t%s\t%s\t%s\t\n",
			bucket.Rate,
			money.Format(bucket.Net, currency),
			money.Format(bucket.VAT, currency),
			money.Format(bucket.Gross, currency),
		)
	}
	fmt.Fprintf(w, "TOTAL\t%s\t%s\t%s\t\n",
		money.Format(b.Totals.Net, currency),
		money.Format(b.Totals.VAT, currency),
		money.Format(b.Totals.Gross, currency),
	)
	_ = w.Flush()
}
