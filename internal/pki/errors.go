package pki

import "errors"

var (
	ErrCertificateParse         = errors.New("certificate parse failed")
	ErrCertificateExpired       = errors.New("certificate outside validity window")
	ErrNoTrustStore             = errors.New("trusted certificate authorities list not available")
	ErrNoCertificates           = errors.New("certificate chain not provided by payment processor")
	ErrNotCertificateAuthority  = errors.New("supplied certificate is not a certificate authority")
	ErrUntrustedCA              = errors.New("supplied CA not found in trusted CA store")
	ErrUnsupportedAlgorithm     = errors.New("signature algorithm not supported")
	ErrChainSignatureInvalid    = errors.New("certificate not signed by provided CA certificate chain")
	ErrEnvelopeSignatureInvalid = errors.New("invalid signature for payment request data")
)
