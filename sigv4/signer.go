package sigv4

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SignedBodyHeader selects whether the payload hash is echoed on the request.
type SignedBodyHeader int

const (
	// NoSignedBodyHeader leaves the payload hash out of the request headers.
	NoSignedBodyHeader SignedBodyHeader = iota
	// SHA256Header adds the payload hash as X-Amz-Content-Sha256, which then
	// participates in canonicalization like any other header.
	SHA256Header
)

// Signer produces Signature Version 4 signatures for HTTP requests. It is
// immutable after New and safe for concurrent use; the only shared mutable
// state is the derived-key cache.
type Signer struct {
	credentials CredentialsProvider
	region      string
	service     string

	now              func() time.Time
	doubleURIEncode  bool
	normalizePath    bool
	signedBodyHeader SignedBodyHeader
	omitSessionToken bool

	keys *derivedKeyCache
	log  *zap.Logger
}

// Option configures a Signer under construction.
type Option func(*Signer)

// WithCredentials signs with a fixed access key, secret and optional session
// token.
func WithCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(s *Signer) {
		s.credentials = StaticCredentialsProvider{Value: Credentials{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
			SessionToken:    sessionToken,
		}}
	}
}

// WithCredentialsProvider resolves credentials per signing call.
func WithCredentialsProvider(p CredentialsProvider) Option {
	return func(s *Signer) { s.credentials = p }
}

// WithRegionService sets the credential scope region and service signing name.
func WithRegionService(region, service string) Option {
	return func(s *Signer) {
		s.region = region
		s.service = service
	}
}

// WithClock overrides the time source, for tests and for callers applying a
// clock-skew correction.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// WithSingleURIEncode encodes the canonical path once instead of twice.
// S3-style services verify against the single-encoded form.
func WithSingleURIEncode() Option {
	return func(s *Signer) { s.doubleURIEncode = false }
}

// WithoutPathNormalization keeps "."/".." segments and duplicate slashes in
// the canonical path.
func WithoutPathNormalization() Option {
	return func(s *Signer) { s.normalizePath = false }
}

// WithSignedBodyHeader selects whether SignHTTP echoes the payload hash on
// the request.
func WithSignedBodyHeader(h SignedBodyHeader) Option {
	return func(s *Signer) { s.signedBodyHeader = h }
}

// WithSessionTokenOmitted leaves the session token out of signing entirely.
func WithSessionTokenOmitted() Option {
	return func(s *Signer) { s.omitSessionToken = true }
}

// WithLogger attaches a logger; the canonical request and string to sign are
// logged at debug level on every signing call.
func WithLogger(log *zap.Logger) Option {
	return func(s *Signer) { s.log = log }
}

// New builds a Signer. Region, service and a credentials source are required;
// double URI encoding and path normalization default to on.
func New(opts ...Option) (*Signer, error) {
	s := &Signer{
		now:             time.Now,
		doubleURIEncode: true,
		normalizePath:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.region == "" || s.service == "" {
		return nil, fmt.Errorf("%w: region=%q service=%q", ErrInvalidConfiguration, s.region, s.service)
	}
	if s.credentials == nil {
		return nil, fmt.Errorf("%w: no credentials source", ErrInvalidConfiguration)
	}
	s.keys = newDerivedKeyCache(s.now)
	return s, nil
}

func (s *Signer) retrieve(ctx context.Context) (Credentials, error) {
	creds, err := s.credentials.Retrieve(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return Credentials{}, fmt.Errorf("%w: resolved credentials are empty", ErrCredentialsUnavailable)
	}
	return creds, nil
}

func (s *Signer) credentialScope(scopeDate string) string {
	return strings.Join([]string{scopeDate, s.region, s.service, requestSuffix}, "/")
}

func stringToSign(amzDate, scope, canonicalRequest string) string {
	sum := sha256.Sum256([]byte(canonicalRequest))
	return strings.Join([]string{
		SigningAlgorithm,
		amzDate,
		scope,
		hex.EncodeToString(sum[:]),
	}, "\n")
}

func requestHost(req *http.Request) string {
	if req.Host != "" {
		return req.Host
	}
	return req.URL.Host
}

// SignHTTP signs req in place using the header variant. It stamps X-Amz-Date
// (and the session token and payload hash headers when configured), then sets
// the Authorization header. payloadHash is the hex SHA-256 of the request
// body or one of the UnsignedPayload/Streaming* sentinels; an empty string
// signs as an empty body. The clock is read exactly once per call, so the
// X-Amz-Date header and string to sign always agree.
func (s *Signer) SignHTTP(ctx context.Context, req *http.Request, payloadHash string) error {
	creds, err := s.retrieve(ctx)
	if err != nil {
		return err
	}
	if payloadHash == "" {
		payloadHash = EmptyStringSHA256
	}

	t := s.now().UTC()
	amzDate := t.Format(TimeFormat)
	scopeDate := t.Format(ShortTimeFormat)

	req.Header.Set(AmzDateKey, amzDate)
	if creds.SessionToken != "" && !s.omitSessionToken {
		req.Header.Set(AmzSecurityTokenKey, creds.SessionToken)
	}
	if s.signedBodyHeader == SHA256Header {
		req.Header.Set(AmzContentSHA256Key, payloadHash)
	}

	query, err := url.ParseQuery(req.URL.RawQuery)
	if err != nil {
		return fmt.Errorf("unparseable query string: %v", err)
	}

	canonical, signedHeaders, err := s.canonicalRequest(req.Method, req.URL, requestHost(req), query, req.Header, payloadHash)
	if err != nil {
		return err
	}

	scope := s.credentialScope(scopeDate)
	strToSign := stringToSign(amzDate, scope, canonical)
	key := s.keys.Get(creds.SecretAccessKey, scopeDate, s.region, s.service)
	signature := hex.EncodeToString(hmacSHA256(key, strToSign))

	req.Header.Set(authorizationHeader, strings.Join([]string{
		SigningAlgorithm + " Credential=" + creds.AccessKeyID + "/" + scope,
		"SignedHeaders=" + signedHeaders,
		"Signature=" + signature,
	}, ", "))

	signaturesTotal.WithLabelValues("header").Inc()
	s.logSigningInfo("header", canonical, strToSign)
	return nil
}

// PresignHTTP signs the request via query parameters and returns the
// presigned URL together with the headers that participated in the
// signature; the caller must send those headers unchanged. The canonical
// query is built with every X-Amz-* parameter except the signature itself,
// which is appended last. req is not mutated.
func (s *Signer) PresignHTTP(ctx context.Context, req *http.Request, payloadHash string, expires time.Duration) (*url.URL, http.Header, error) {
	creds, err := s.retrieve(ctx)
	if err != nil {
		return nil, nil, err
	}
	if payloadHash == "" {
		payloadHash = EmptyStringSHA256
	}

	t := s.now().UTC()
	amzDate := t.Format(TimeFormat)
	scopeDate := t.Format(ShortTimeFormat)
	scope := s.credentialScope(scopeDate)

	query, err := url.ParseQuery(req.URL.RawQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("unparseable query string: %v", err)
	}
	query.Set(AmzAlgorithmKey, SigningAlgorithm)
	query.Set(AmzCredentialKey, creds.AccessKeyID+"/"+scope)
	query.Set(AmzDateKey, amzDate)
	query.Set(AmzExpiresKey, strconv.FormatInt(int64(expires/time.Second), 10))
	if creds.SessionToken != "" && !s.omitSessionToken {
		query.Set(AmzSecurityTokenKey, creds.SessionToken)
	}

	host := requestHost(req)
	names, headerStr, err := canonicalHeaders(host, req.Header)
	if err != nil {
		return nil, nil, err
	}
	signedHeaders := strings.Join(names, ";")
	query.Set(AmzSignedHeadersKey, signedHeaders)

	canonQuery := canonicalQueryString(query)
	canonical := strings.Join([]string{
		req.Method,
		canonicalPath(req.URL, s.doubleURIEncode, s.normalizePath),
		canonQuery,
		headerStr + "\n",
		signedHeaders,
		payloadHash,
	}, "\n")

	strToSign := stringToSign(amzDate, scope, canonical)
	key := s.keys.Get(creds.SecretAccessKey, scopeDate, s.region, s.service)
	signature := hex.EncodeToString(hmacSHA256(key, strToSign))

	signedURL := *req.URL
	signedURL.RawQuery = canonQuery + "&" + AmzSignatureKey + "=" + signature

	signed := make(http.Header)
	for _, name := range names {
		if name == "host" {
			signed.Set("Host", host)
			continue
		}
		signed[http.CanonicalHeaderKey(name)] = req.Header[http.CanonicalHeaderKey(name)]
	}

	signaturesTotal.WithLabelValues("query").Inc()
	s.logSigningInfo("query", canonical, strToSign)
	return &signedURL, signed, nil
}

var authSignatureRegexp = regexp.MustCompile("Signature=([a-f0-9]{64})")

// RequestSignature extracts the hex signature from a previously signed
// request, looking at the Authorization header first and the X-Amz-Signature
// query parameter second. Use it to seed a StreamSigner from the initiating
// request.
func RequestSignature(req *http.Request) (string, error) {
	if auth := req.Header.Get(authorizationHeader); auth != "" {
		if m := authSignatureRegexp.FindStringSubmatch(auth); m != nil {
			return m[1], nil
		}
	}
	if sig := req.URL.Query().Get(AmzSignatureKey); sig != "" {
		return sig, nil
	}
	return "", ErrNoSignature
}

func (s *Signer) logSigningInfo(variant, canonicalRequest, strToSign string) {
	if s.log == nil {
		return
	}
	s.log.Debug("request signed",
		zap.String("variant", variant),
		zap.String("canonical_request", canonicalRequest),
		zap.String("string_to_sign", strToSign),
	)
}
