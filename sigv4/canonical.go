package sigv4

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
)

// uriEncode percent-encodes every byte outside the RFC 3986 unreserved set
// (ALPHA / DIGIT / "-._~"). A space becomes %20, never "+". Slashes are kept
// when encodeSlash is false so path segments stay separated.
func uriEncode(s string, encodeSlash bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// canonicalPath encodes the URL path for the canonical request. The path is
// encoded exactly once from its decoded form; double encoding re-applies the
// encoding on top, which is what every service except S3-style ones expects.
func canonicalPath(u *url.URL, doubleEncode, normalize bool) string {
	p := u.Path
	if p == "" {
		p = "/"
	}
	if normalize {
		p = normalizePathSegments(p)
	}
	p = uriEncode(p, false)
	if doubleEncode {
		p = uriEncode(p, false)
	}
	return p
}

// normalizePathSegments collapses duplicate slashes and "."/".." segments,
// preserving a trailing slash.
func normalizePathSegments(p string) string {
	trailing := strings.HasSuffix(p, "/") && p != "/"
	p = path.Clean(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if trailing && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

type queryPair struct {
	key   string
	value string
}

// canonicalQueryString encodes each key and value independently, then orders
// entries by encoded key with encoded value as the tie breaker. A key with no
// value serializes as "key=".
func canonicalQueryString(query url.Values) string {
	pairs := make([]queryPair, 0, len(query))
	for key, values := range query {
		ek := uriEncode(key, true)
		if len(values) == 0 {
			pairs = append(pairs, queryPair{key: ek})
			continue
		}
		for _, v := range values {
			pairs = append(pairs, queryPair{key: ek, value: uriEncode(v, true)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	entries := make([]string, len(pairs))
	for i, p := range pairs {
		entries[i] = p.key + "=" + p.value
	}
	return strings.Join(entries, "&")
}

// canonicalHeaders lower-cases and sorts the header names, trims values and
// collapses internal whitespace runs. Values carrying CR/LF and repeated
// header names are rejected outright: folding and comma-merging are
// unsupported, and guessing at them would mis-canonicalize silently. The host
// header is synthesized from the request target.
func canonicalHeaders(host string, header http.Header) (names []string, canonical string, err error) {
	if host == "" || strings.ContainsAny(host, "\r\n") {
		return nil, "", fmt.Errorf("%w: host %q", ErrMalformedHeaderValue, host)
	}

	entries := map[string]string{"host": strings.TrimSpace(host)}
	for name, values := range header {
		lower := strings.ToLower(name)
		if _, ok := ignoredHeaders[lower]; ok {
			continue
		}
		if lower == "host" {
			continue
		}
		if len(values) != 1 {
			return nil, "", fmt.Errorf("%w: repeated header %q", ErrMalformedHeaderValue, name)
		}
		if _, ok := entries[lower]; ok {
			return nil, "", fmt.Errorf("%w: repeated header %q", ErrMalformedHeaderValue, name)
		}
		if strings.ContainsAny(values[0], "\r\n") {
			return nil, "", fmt.Errorf("%w: control characters in %q", ErrMalformedHeaderValue, name)
		}
		entries[lower] = collapseSpaces(values[0])
	}

	names = make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)

	lines := make([]string, len(names))
	for i, n := range names {
		lines[i] = n + ":" + entries[n]
	}
	return names, strings.Join(lines, "\n"), nil
}

func collapseSpaces(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// canonicalRequest assembles the full canonical request string and the
// semicolon-joined signed header list. Identical inputs always produce a
// byte-identical result.
func (s *Signer) canonicalRequest(method string, u *url.URL, host string, query url.Values, header http.Header, payloadHash string) (raw, signedHeaders string, err error) {
	names, headerStr, err := canonicalHeaders(host, header)
	if err != nil {
		return "", "", err
	}
	signedHeaders = strings.Join(names, ";")
	raw = strings.Join([]string{
		method,
		canonicalPath(u, s.doubleURIEncode, s.normalizePath),
		canonicalQueryString(query),
		headerStr + "\n",
		signedHeaders,
		payloadHash,
	}, "\n")
	return raw, signedHeaders, nil
}

// HashPayload consumes r and returns the hex encoded SHA-256 of its contents
// without buffering the body. A nil reader hashes like an empty body.
func HashPayload(r io.Reader) (string, error) {
	if r == nil {
		return EmptyStringSHA256, nil
	}
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPayloadRead, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
