package payment

import "errors"

var (
	// Request parsing errors
	ErrEmptyRequest  = errors.New("empty payment request")
	ErrRequestDecode = errors.New("failed to decode payment request")

	// Fetch errors
	ErrUnsupportedScheme = errors.New("unsupported payment request URL scheme")
	ErrFetchFailed       = errors.New("failed to fetch payment request")

	// Submission errors
	ErrNoPaymentURL = errors.New("payment request carries no payment URL")
	ErrSubmitFailed = errors.New("failed to submit payment")
	ErrAckMalformed = errors.New("payment acknowledgment could not be processed")

	// Invoice store errors
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrStorePersist    = errors.New("failed to persist invoice store")
)
