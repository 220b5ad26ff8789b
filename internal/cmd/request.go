package cmd

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/cobra"

	"github.com/coinpath-labs/paymentd/internal/payment"
)

var (
	reqAddress      string
	reqAmount       uint64
	reqMemo         string
	reqExpiry       time.Duration
	reqPayURL       string
	reqNetwork      string
	reqOut          string
	reqAlias        string
	reqAliasKey     string
	reqUncompressed bool
	reqCertFile     string
	reqCertKeyFile  string
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Issue payment requests",
}

var requestCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create and optionally sign a payment request",
	Long: `Build a serialized payment request for an address and amount.

The request can be left unsigned, signed with the bitcoin key behind a
DNSSEC alias, or signed under an X.509 certificate chain.

Examples:
  paymentd request create --address 1BoatSLRHtKNngkdXEeobR76b53LETtpyT --amount 150000 --out invoice.bip70
  paymentd request create --address mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn --amount 5000 --network test \
      --alias shop@merchant.example --alias-key <hex>
  paymentd request create --address 1BoatSLRHtKNngkdXEeobR76b53LETtpyT --amount 150000 \
      --cert chain.pem --cert-key merchant-key.pem --url https://merchant.example/pay/42`,
	Run: func(cmd *cobra.Command, args []string) {
		if reqAddress == "" {
			exitErr("--address is required")
		}
		if reqAmount == 0 {
			exitErr("--amount is required")
		}
		if reqAlias != "" && reqCertFile != "" {
			exitErr("--alias and --cert are mutually exclusive")
		}

		env, err := payment.BuildUnsignedRequest(payment.RequestParams{
			Address:    reqAddress,
			Amount:     reqAmount,
			Memo:       reqMemo,
			Expiry:     reqExpiry,
			PaymentURL: reqPayURL,
			Network:    reqNetwork,
		})
		if err != nil {
			exitErr("failed to build request: %v", err)
		}
		raw := env.Raw()

		switch {
		case reqAlias != "":
			if reqAliasKey == "" {
				exitErr("--alias requires --alias-key")
			}
			keyBytes, err := hex.DecodeString(reqAliasKey)
			if err != nil || len(keyBytes) != 32 {
				exitErr("--alias-key must be 32 bytes of hex")
			}
			priv := secp256k1.PrivKeyFromBytes(keyBytes)
			raw = payment.SignRequestWithAlias(env, reqAlias, priv, !reqUncompressed)

		case reqCertFile != "":
			if reqCertKeyFile == "" {
				exitErr("--cert requires --cert-key")
			}
			chain, err := loadCertChainPEM(reqCertFile)
			if err != nil {
				exitErr("failed to load certificate chain: %v", err)
			}
			key, err := loadRSAKeyPEM(reqCertKeyFile)
			if err != nil {
				exitErr("failed to load signing key: %v", err)
			}
			raw, err = payment.SignRequestWithCertChain(env, key, chain)
			if err != nil {
				exitErr("failed to sign request: %v", err)
			}
		}

		if err := os.WriteFile(reqOut, raw, 0644); err != nil {
			exitErr("failed to write request: %v", err)
		}

		pr, err := payment.ParsePaymentRequest(raw)
		if err != nil {
			exitErr("built request does not parse back: %v", err)
		}

		fmt.Println("✓ Payment request written")
		fmt.Printf("File:       %s (%d bytes)\n", reqOut, len(raw))
		fmt.Printf("ID:         %s\n", pr.ID())
		fmt.Printf("PKI type:   %s\n", env.PKIType)
		fmt.Printf("Amount:     %d sat\n", pr.Amount())
		if reqExpiry > 0 {
			fmt.Printf("Expires:    %s\n", pr.ExpirationTime().Format("2006-01-02 15:04:05"))
		}
	},
}

func loadCertChainPEM(path string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var chain [][]byte
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		chain = append(chain, block.Bytes)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no certificates in %s", path)
	}
	return chain, nil
}

func loadRSAKeyPEM(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s does not hold an RSA key", path)
	}
	return key, nil
}

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.AddCommand(requestCreateCmd)

	requestCreateCmd.Flags().StringVarP(&reqAddress, "address", "a", "", "destination address (required)")
	requestCreateCmd.Flags().Uint64Var(&reqAmount, "amount", 0, "amount in satoshis (required)")
	requestCreateCmd.Flags().StringVarP(&reqMemo, "memo", "m", "", "memo shown to the payer")
	requestCreateCmd.Flags().DurationVar(&reqExpiry, "expiry", 0, "validity window, 0 means the request never expires")
	requestCreateCmd.Flags().StringVar(&reqPayURL, "url", "", "payment URL receiving the payment message")
	requestCreateCmd.Flags().StringVar(&reqNetwork, "network", "", "bitcoin network, main or test")
	requestCreateCmd.Flags().StringVarP(&reqOut, "out", "o", "request.bip70", "output file")
	requestCreateCmd.Flags().StringVar(&reqAlias, "alias", "", "DNSSEC alias to sign as")
	requestCreateCmd.Flags().StringVar(&reqAliasKey, "alias-key", "", "hex private key behind the alias")
	requestCreateCmd.Flags().BoolVar(&reqUncompressed, "uncompressed", false, "sign for the uncompressed key's address")
	requestCreateCmd.Flags().StringVar(&reqCertFile, "cert", "", "PEM certificate chain, leaf first")
	requestCreateCmd.Flags().StringVar(&reqCertKeyFile, "cert-key", "", "PEM RSA private key of the leaf certificate")
}
