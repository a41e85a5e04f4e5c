package sigv4

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signaturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sigv4",
		Name:      "signatures_total",
		Help:      "Request signatures produced, by variant.",
	}, []string{"variant"})

	chunkSignaturesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sigv4",
		Name:      "chunk_signatures_total",
		Help:      "Chunk, event and trailer signatures produced.",
	})

	keyDerivations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sigv4",
		Name:      "key_derivations_total",
		Help:      "Signing key HMAC chain derivations.",
	})

	keyCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sigv4",
		Name:      "key_cache_hits_total",
		Help:      "Signing key cache hits.",
	})
)
