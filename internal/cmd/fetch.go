package cmd

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/coinpath-labs/paymentd/internal/payment"
	"github.com/coinpath-labs/paymentd/internal/workers"
)

var fetchNoStore bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <url> [url...]",
	Short: "Fetch and verify payment requests",
	Long: `Fetch payment requests from http(s) or file URLs, verify their
signatures and add them to the invoice store.

Multiple URLs are fetched concurrently.

Example:
  paymentd fetch https://merchant.example/invoice/42
  paymentd fetch file:///tmp/request.bip70 --no-store`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		verifier := newVerifier()
		store := payment.NewInvoiceStore(config, logger)

		type result struct {
			pr  *payment.PaymentRequest
			err error
		}
		results := make([]result, len(args))

		pool := workers.NewWorkerPool(cmd.Context(), 0, config)
		pool.Start()
		var wg sync.WaitGroup
		for i, rawURL := range args {
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				pr, err := payment.FetchPaymentRequest(cmd.Context(), config, logger, rawURL)
				if err == nil {
					verifier.Verify(pr, nil)
				}
				results[i] = result{pr: pr, err: err}
			}); err != nil {
				wg.Done()
				results[i] = result{err: err}
			}
		}
		wg.Wait()
		pool.Stop()

		failed := 0
		for i, res := range results {
			fmt.Printf("URL:        %s\n", args[i])
			if res.err != nil {
				failed++
				fmt.Printf("Error:      %v\n", res.err)
				fmt.Println()
				continue
			}

			printRequest(res.pr)
			if !fetchNoStore {
				id, err := store.Add(res.pr)
				if err != nil {
					fmt.Printf("Store:      failed: %v\n", err)
				} else {
					fmt.Printf("Store:      added as %s\n", id)
				}
			}
			fmt.Println()
		}

		if failed > 0 {
			exitErr("%d of %d requests failed", failed, len(args))
		}
	},
}

func printRequest(pr *payment.PaymentRequest) {
	mark := "✗"
	if pr.IsVerified() {
		mark = "✓"
	}
	fmt.Printf("ID:         %s\n", pr.ID())
	fmt.Printf("Requestor:  %s\n", pr.Requestor())
	fmt.Printf("Verify:     %s %s\n", mark, pr.VerifyStatus())
	if pr.Memo() != "" {
		fmt.Printf("Memo:       %s\n", pr.Memo())
	}
	fmt.Printf("Network:    %s\n", pr.Network())
	fmt.Printf("Amount:     %d sat\n", pr.Amount())
	fmt.Printf("Created:    %s\n", pr.CreationTime().Format("2006-01-02 15:04:05"))
	if pr.ExpirationTime().IsZero() {
		fmt.Printf("Expires:    never\n")
	} else {
		expired := ""
		if pr.HasExpired() {
			expired = " (expired)"
		}
		fmt.Printf("Expires:    %s%s\n", pr.ExpirationTime().Format("2006-01-02 15:04:05"), expired)
	}
	for _, out := range pr.Outputs() {
		fmt.Printf("Output:     %s %s %d sat\n", out.Type, out.Address, out.Amount)
	}
	if pr.PaymentURL() != "" {
		fmt.Printf("Pay URL:    %s\n", pr.PaymentURL())
	}
	if pr.Tx() != "" {
		fmt.Printf("Paid tx:    %s\n", pr.Tx())
	}
}

// separator matches the width used by the other commands' output.
func separator() string {
	return strings.Repeat("━", 60)
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().BoolVar(&fetchNoStore, "no-store", false, "do not add fetched requests to the invoice store")
}
