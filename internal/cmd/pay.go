package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coinpath-labs/paymentd/internal/bitcoin"
	"github.com/coinpath-labs/paymentd/internal/payment"
)

var (
	payTxHex  string
	payTxFile string
	payRefund string
)

var payCmd = &cobra.Command{
	Use:   "pay <id>",
	Short: "Submit a broadcast transaction for an invoice",
	Long: `Deliver an already broadcast transaction to the merchant's payment
URL and record the invoice as paid.

The transaction is passed as raw hex, either inline or from a file. The
invoice is marked paid once the transaction is accepted locally, the
merchant acknowledgment is delivered on a best effort basis afterwards.

Example:
  paymentd pay 6e3c9317... --tx-file /tmp/tx.hex --refund 1BoatSLRHtKNngkdXEeobR76b53LETtpyT`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]

		if (payTxHex == "") == (payTxFile == "") {
			exitErr("exactly one of --tx and --tx-file is required")
		}
		txHex := payTxHex
		if payTxFile != "" {
			data, err := os.ReadFile(payTxFile)
			if err != nil {
				exitErr("failed to read transaction file: %v", err)
			}
			txHex = strings.TrimSpace(string(data))
		}
		rawTx, err := hex.DecodeString(txHex)
		if err != nil {
			exitErr("transaction is not valid hex: %v", err)
		}
		if len(rawTx) == 0 {
			exitErr("transaction is empty")
		}

		store := payment.NewInvoiceStore(config, logger)
		pr, ok := store.Get(id)
		if !ok {
			exitErr("invoice %s not found", id)
		}
		if pr.Tx() != "" {
			exitErr("invoice %s already paid by %s", id, pr.Tx())
		}
		if pr.HasExpired() {
			exitErr("invoice %s expired at %s", id, pr.ExpirationTime().Format("2006-01-02 15:04:05"))
		}

		txid := bitcoin.TxID(rawTx)
		if err := store.SetPaid(id, txid); err != nil {
			exitErr("failed to record payment: %v", err)
		}
		fmt.Println("✓ Invoice marked paid")
		fmt.Printf("Invoice:    %s\n", id)
		fmt.Printf("Txid:       %s\n", txid)

		if pr.PaymentURL() == "" {
			fmt.Println("No payment URL, nothing to deliver to the merchant.")
			return
		}

		memo, err := payment.SubmitPayment(cmd.Context(), config, logger, pr, rawTx, payRefund)
		if err != nil {
			fmt.Printf("Error: payment delivery failed: %v\n", err)
			if errors.Is(err, payment.ErrAckMalformed) {
				fmt.Println("The invoice stays recorded as paid.")
			} else {
				fmt.Println("The invoice stays recorded as paid, deliver the payment message again if needed.")
			}
			os.Exit(1)
		}
		fmt.Printf("Ack memo:   %s\n", memo)
	},
}

func init() {
	rootCmd.AddCommand(payCmd)

	payCmd.Flags().StringVar(&payTxHex, "tx", "", "raw transaction hex")
	payCmd.Flags().StringVar(&payTxFile, "tx-file", "", "file containing the raw transaction hex")
	payCmd.Flags().StringVarP(&payRefund, "refund", "r", "", "refund address for the payment message (required)")
	payCmd.MarkFlagRequired("refund")
}
