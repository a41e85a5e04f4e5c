package sigv4

const (
	// SigningAlgorithm identifies the v4 HMAC-SHA256 signature scheme.
	SigningAlgorithm = "AWS4-HMAC-SHA256"

	// TimeFormat is the timestamp layout used in the X-Amz-Date header or
	// query parameter.
	TimeFormat = "20060102T150405Z"

	// ShortTimeFormat is the date layout used in credential scopes.
	ShortTimeFormat = "20060102"

	AmzAlgorithmKey     = "X-Amz-Algorithm"
	AmzCredentialKey    = "X-Amz-Credential"
	AmzDateKey          = "X-Amz-Date"
	AmzExpiresKey       = "X-Amz-Expires"
	AmzSignedHeadersKey = "X-Amz-SignedHeaders"
	AmzSignatureKey     = "X-Amz-Signature"
	AmzSecurityTokenKey = "X-Amz-Security-Token"
	AmzContentSHA256Key = "X-Amz-Content-Sha256"

	// EmptyStringSHA256 is the hex encoded sha256 value of an empty string.
	EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	// UnsignedPayload is the payload hash sentinel for unhashed bodies.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// StreamingPayload marks a body whose chunks are signed individually by
	// a StreamSigner.
	StreamingPayload = "STREAMING-AWS4-HMAC-SHA256-PAYLOAD"

	// StreamingPayloadTrailer is StreamingPayload with a signed trailer block.
	StreamingPayloadTrailer = "STREAMING-AWS4-HMAC-SHA256-PAYLOAD-TRAILER"

	// StreamingEventsPayload marks an event-stream body whose messages are
	// signed individually.
	StreamingEventsPayload = "STREAMING-AWS4-HMAC-SHA256-EVENTS"

	authorizationHeader = "Authorization"
	requestSuffix       = "aws4_request"
)

// ignoredHeaders never participate in canonicalization.
var ignoredHeaders = map[string]struct{}{
	"authorization":   {},
	"user-agent":      {},
	"x-amzn-trace-id": {},
}
