package payment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/coinpath-labs/paymentd/internal/utils"
)

const (
	acceptRequestMIME = "application/bitcoin-paymentrequest"
	paymentMIME       = "application/bitcoin-payment"
	acceptAckMIME     = "application/bitcoin-paymentack"
)

// FetchPaymentRequest retrieves and parses a payment request from an
// http(s) URL or a local file URL.
func FetchPaymentRequest(ctx context.Context, cm *utils.ConfigManager, logger *utils.LogsManager, rawURL string) (*PaymentRequest, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	var data []byte
	switch u.Scheme {
	case "http", "https":
		data, err = fetchHTTP(ctx, cm, rawURL)
	case "file":
		data, err = os.ReadFile(u.Path)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, err
	}

	pr, err := ParsePaymentRequest(data)
	if err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("Fetched payment request %s from %s (%d bytes)", pr.id, rawURL, len(data)), "fetch")
	return pr, nil
}

func fetchHTTP(ctx context.Context, cm *utils.ConfigManager, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", acceptRequestMIME)
	req.Header.Set("User-Agent", cm.GetConfigWithDefault("user_agent", "paymentd/1.0"))

	client := &http.Client{Timeout: cm.GetConfigDuration("http_timeout", 30*time.Second)}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned %s", ErrFetchFailed, resp.Status)
	}

	// Cap the read so a hostile server cannot balloon memory.
	maxBytes := cm.GetConfigBytes("max_request_bytes", 50000)
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrFetchFailed, maxBytes)
	}
	return data, nil
}
