package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coinpath-labs/paymentd/internal/payment"
	"github.com/coinpath-labs/paymentd/internal/pki"
	"github.com/coinpath-labs/paymentd/internal/utils"
)

var (
	configPath string
	config     *utils.ConfigManager
	logger     *utils.LogsManager
)

var rootCmd = &cobra.Command{
	Use:   "paymentd",
	Short: "BIP70 payment request client",
	Long: `paymentd fetches, verifies and settles BIP70 payment requests.

Requests are verified against the system's trusted CA bundle (or a
bundle configured via truststore_file) or through DNSSEC aliases, and
tracked in a local invoice store until they are paid.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config = utils.NewConfigManager(configPath)
		logger = utils.NewLogsManager(config)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
}

// newVerifier builds a verifier over the configured trust store. A
// missing store is reported but not fatal, alias verification works
// without one and x509 requests then fail with a clear status.
func newVerifier() *payment.Verifier {
	trust, err := pki.NewTrustStore(config, logger)
	if err != nil {
		logger.Warn(fmt.Sprintf("No trust store available: %v", err), "cli")
		fmt.Printf("Warning: no trusted CA bundle loaded (%v)\n", err)
		return payment.NewVerifier(nil, logger)
	}
	return payment.NewVerifier(trust, logger)
}

func exitErr(format string, a ...interface{}) {
	fmt.Printf("Error: "+format+"\n", a...)
	os.Exit(1)
}
