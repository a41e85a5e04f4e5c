package sigv4

import "errors"

var (
	// ErrInvalidConfiguration is returned when the region, service signing
	// name or another required input is missing before any cryptographic
	// work begins.
	ErrInvalidConfiguration = errors.New("missing region or service signing name")

	// ErrCredentialsUnavailable is returned when the resolved credentials
	// are unusable for signing.
	ErrCredentialsUnavailable = errors.New("credentials unavailable")

	// ErrMalformedHeaderValue is returned for header values that cannot be
	// canonicalized safely: embedded CR/LF, or repeated header names.
	ErrMalformedHeaderValue = errors.New("malformed header value")

	// ErrChunkOrderingViolation is returned when chunk chain state is reused
	// or skipped. It signals a programming error, not a recoverable fault.
	ErrChunkOrderingViolation = errors.New("chunk signed out of order")

	// ErrPayloadRead is returned when hashing a streamed body fails.
	ErrPayloadRead = errors.New("unable to read payload")

	// ErrNoSignature is returned when no signature is found on a request.
	ErrNoSignature = errors.New("no signature found on request")
)
