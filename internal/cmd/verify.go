package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coinpath-labs/paymentd/internal/payment"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Verify a payment request read from disk",
	Long: `Parse a serialized payment request from a file and verify its
signature without touching the invoice store.

Exits non-zero when the signature does not verify.

Example:
  paymentd verify /tmp/request.bip70`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			exitErr("failed to read request: %v", err)
		}
		pr, err := payment.ParsePaymentRequest(raw)
		if err != nil {
			exitErr("failed to parse request: %v", err)
		}

		ok := newVerifier().Verify(pr, nil)

		fmt.Println(separator())
		printRequest(pr)
		fmt.Println(separator())

		if !ok {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
