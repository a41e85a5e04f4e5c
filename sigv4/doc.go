/*
Package sigv4 implements the AWS Signature Version 4 request signing scheme.

A request is bound to a credential by hashing its canonical form (method,
encoded path, sorted query, normalized headers, payload hash), combining that
hash with a timestamp and a credential scope into a string to sign, and
HMAC-SHA256-ing the result with a key derived from the secret through the
date/region/service chain. The receiving service recomputes the same chain to
verify; the secret never crosses the wire.

Signer covers the header variant (Authorization) and the query variant
(presigned URLs). StreamSigner covers aws-chunked bodies and event streams,
where every chunk's signature is chained from the one before it. Derived
signing keys are cached per credential, scope date, region and service, and
evicted once their scope date rolls out of the retention window.
*/
package sigv4
