package sigv4

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	chunkAlgorithm   = SigningAlgorithm + "-PAYLOAD"
	trailerAlgorithm = SigningAlgorithm + "-TRAILER"
	eventAlgorithm   = SigningAlgorithm + "-EVENT"

	chunkSignatureKey   = "chunk-signature="
	trailerSignatureKey = "x-amz-trailer-signature"
)

type streamState int

const (
	streamOpen streamState = iota
	streamFinished
	streamClosed
)

// StreamSigner chains signatures across the chunks of one outgoing stream:
// chunk N's signature is an input to chunk N+1's, so chunks must be signed
// strictly in emission order. A StreamSigner is owned by the stream's single
// writer and must never be advanced concurrently.
type StreamSigner struct {
	prefix string
	key    []byte
	prev   string
	state  streamState
}

// NewStreamSigner starts a chunk signing chain. at must be the timestamp the
// initiating request was signed with and seedSignature that request's
// signature; RequestSignature recovers it from a signed request.
func (s *Signer) NewStreamSigner(ctx context.Context, at time.Time, seedSignature string) (*StreamSigner, error) {
	creds, err := s.retrieve(ctx)
	if err != nil {
		return nil, err
	}
	if len(seedSignature) != 64 {
		return nil, fmt.Errorf("%w: seed signature %q", ErrInvalidConfiguration, seedSignature)
	}

	t := at.UTC()
	scopeDate := t.Format(ShortTimeFormat)
	return &StreamSigner{
		prefix: t.Format(TimeFormat) + "\n" + s.credentialScope(scopeDate) + "\n",
		key:    s.keys.Get(creds.SecretAccessKey, scopeDate, s.region, s.service),
		prev:   seedSignature,
	}, nil
}

func (ss *StreamSigner) sign(algorithm string, lines ...string) string {
	strToSign := algorithm + "\n" + ss.prefix + ss.prev + "\n" + strings.Join(lines, "\n")
	sig := hex.EncodeToString(hmacSHA256(ss.key, strToSign))
	ss.prev = sig
	chunkSignaturesTotal.Inc()
	return sig
}

// SignChunk signs the next body chunk and advances the chain.
func (ss *StreamSigner) SignChunk(chunk []byte) (string, error) {
	if ss.state != streamOpen {
		return "", fmt.Errorf("%w: chunk signed after the final chunk", ErrChunkOrderingViolation)
	}
	sum := sha256.Sum256(chunk)
	return ss.sign(chunkAlgorithm, EmptyStringSHA256, hex.EncodeToString(sum[:])), nil
}

// SignFinalChunk signs the zero-length terminator chunk. No further chunks
// may be signed afterwards.
func (ss *StreamSigner) SignFinalChunk() (string, error) {
	if ss.state != streamOpen {
		return "", fmt.Errorf("%w: final chunk signed twice", ErrChunkOrderingViolation)
	}
	ss.state = streamFinished
	return ss.sign(chunkAlgorithm, EmptyStringSHA256, EmptyStringSHA256), nil
}

// SignTrailer signs the trailing header block. Valid only directly after
// SignFinalChunk.
func (ss *StreamSigner) SignTrailer(trailer http.Header) (string, error) {
	if ss.state != streamFinished {
		return "", fmt.Errorf("%w: trailer signed out of sequence", ErrChunkOrderingViolation)
	}
	canonical, err := canonicalTrailer(trailer)
	if err != nil {
		return "", err
	}
	ss.state = streamClosed
	sum := sha256.Sum256([]byte(canonical))
	return ss.sign(trailerAlgorithm, hex.EncodeToString(sum[:])), nil
}

// SignEvent signs one serialized event-stream message, chained like a chunk.
func (ss *StreamSigner) SignEvent(message []byte) (string, error) {
	if ss.state != streamOpen {
		return "", fmt.Errorf("%w: event signed after the stream closed", ErrChunkOrderingViolation)
	}
	sum := sha256.Sum256(message)
	return ss.sign(eventAlgorithm, EmptyStringSHA256, hex.EncodeToString(sum[:])), nil
}

// canonicalTrailer renders the trailing headers as lower-cased, sorted
// "name:value\n" lines, with the same value constraints as regular headers.
func canonicalTrailer(trailer http.Header) (string, error) {
	if len(trailer) == 0 {
		return "", fmt.Errorf("%w: empty trailer", ErrMalformedHeaderValue)
	}

	entries := make(map[string]string, len(trailer))
	names := make([]string, 0, len(trailer))
	for name, values := range trailer {
		lower := strings.ToLower(name)
		if len(values) != 1 {
			return "", fmt.Errorf("%w: repeated trailer %q", ErrMalformedHeaderValue, name)
		}
		if strings.ContainsAny(values[0], "\r\n") {
			return "", fmt.Errorf("%w: control characters in %q", ErrMalformedHeaderValue, name)
		}
		entries[lower] = collapseSpaces(values[0])
		names = append(names, lower)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte(':')
		b.WriteString(entries[n])
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// ChunkedWriter encodes an aws-chunked request body over w, framing every
// Write as one signed chunk:
//
//	<hex-length>;chunk-signature=<signature>\r\n<data>\r\n
//
// Close emits the zero-length terminator; CloseWithTrailer additionally
// appends a signed trailer block. The caller controls chunk sizes through
// its Write calls.
type ChunkedWriter struct {
	w  io.Writer
	ss *StreamSigner
}

func NewChunkedWriter(w io.Writer, ss *StreamSigner) *ChunkedWriter {
	return &ChunkedWriter{w: w, ss: ss}
}

func (c *ChunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	sig, err := c.ss.SignChunk(p)
	if err != nil {
		return 0, err
	}
	if _, err := fmt.Fprintf(c.w, "%x;%s%s\r\n", len(p), chunkSignatureKey, sig); err != nil {
		return 0, err
	}
	n, err := c.w.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := io.WriteString(c.w, "\r\n"); err != nil {
		return n, err
	}
	return n, nil
}

// Close terminates the stream with the signed zero-length chunk.
func (c *ChunkedWriter) Close() error {
	sig, err := c.ss.SignFinalChunk()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.w, "0;%s%s\r\n\r\n", chunkSignatureKey, sig)
	return err
}

// CloseWithTrailer terminates the stream with the signed zero-length chunk
// followed by the trailing headers and their signature.
func (c *ChunkedWriter) CloseWithTrailer(trailer http.Header) error {
	sig, err := c.ss.SignFinalChunk()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.w, "0;%s%s\r\n", chunkSignatureKey, sig); err != nil {
		return err
	}

	canonical, err := canonicalTrailer(trailer)
	if err != nil {
		return err
	}
	tsig, err := c.ss.SignTrailer(trailer)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimSuffix(canonical, "\n"), "\n") {
		if _, err := io.WriteString(c.w, line+"\r\n"); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(c.w, "%s:%s\r\n\r\n", trailerSignatureKey, tsig)
	return err
}
