package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/coinpath-labs/paymentd/internal/payment"
)

var invoicePaidTxid string

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Manage the local invoice store",
	Long: `Inspect and maintain the invoices tracked by this machine.

Invoices are added by 'paymentd fetch' and marked paid by 'paymentd pay'
or 'paymentd invoice paid'.`,
}

var invoiceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored invoices",
	Run: func(cmd *cobra.Command, args []string) {
		store := payment.NewInvoiceStore(config, logger)
		invoices := store.List()

		if len(invoices) == 0 {
			fmt.Println("No invoices stored.")
			return
		}

		sort.Slice(invoices, func(i, j int) bool {
			if !invoices[i].CreationTime().Equal(invoices[j].CreationTime()) {
				return invoices[i].CreationTime().Before(invoices[j].CreationTime())
			}
			return invoices[i].ID() < invoices[j].ID()
		})

		for _, pr := range invoices {
			status, err := store.GetStatus(pr.ID())
			if err != nil {
				status = payment.StatusError
			}
			fmt.Printf("%s  %-7s  %12d sat  %s\n", pr.ID(), status, pr.Amount(), pr.Requestor())
		}
		fmt.Println()
		fmt.Printf("%d invoices in %s\n", len(invoices), store.Path())
	},
}

var invoiceShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one invoice in full",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := payment.NewInvoiceStore(config, logger)
		pr, ok := store.Get(args[0])
		if !ok {
			exitErr("invoice %s not found", args[0])
		}
		status, err := store.GetStatus(args[0])
		if err != nil {
			exitErr("failed to derive status: %v", err)
		}

		fmt.Println(separator())
		printRequest(pr)
		fmt.Printf("Status:     %s\n", status)
		fmt.Println(separator())
	},
}

var invoiceRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an invoice from the store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := payment.NewInvoiceStore(config, logger)
		if err := store.Remove(args[0]); err != nil {
			exitErr("%v", err)
		}
		fmt.Printf("✓ Invoice %s removed\n", args[0])
	},
}

var invoicePaidCmd = &cobra.Command{
	Use:   "paid <id>",
	Short: "Mark an invoice as paid by a transaction",
	Long: `Record the transaction id that settled an invoice without
delivering a payment message to the merchant.

Example:
  paymentd invoice paid 6e3c9317... --txid 4a5e1e4b...`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := payment.NewInvoiceStore(config, logger)
		if err := store.SetPaid(args[0], invoicePaidTxid); err != nil {
			exitErr("%v", err)
		}
		fmt.Printf("✓ Invoice %s marked paid by %s\n", args[0], invoicePaidTxid)
	},
}

func init() {
	rootCmd.AddCommand(invoiceCmd)

	invoiceCmd.AddCommand(invoiceListCmd)
	invoiceCmd.AddCommand(invoiceShowCmd)
	invoiceCmd.AddCommand(invoiceRemoveCmd)
	invoiceCmd.AddCommand(invoicePaidCmd)

	invoicePaidCmd.Flags().StringVar(&invoicePaidTxid, "txid", "", "transaction id that settled the invoice (required)")
	invoicePaidCmd.MarkFlagRequired("txid")
}
