// Package credcache maintains a signing-credential store for services that
// sign on behalf of many access keys. Secrets are loaded in bulk from a
// Loader, kept in an in-memory cache and refreshed in the background; each
// access key resolves to a ready-to-use request signer.
package credcache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/coreweave/aws-sigv4/sigv4"
)

//go:generate mockgen -destination=../internal/mocks/interfaces.go -package=mocks -source=store.go

var errNoAccessKeyInStore = errors.New("no accessKeyId found in store")

// Loader fetches the full access-key to secret-key mapping from its backing
// source.
type Loader interface {
	LoadCredentials() (map[string]string, error)
}

type Store struct {
	loader  Loader
	secrets *fastcache.Cache
	parser  *AccessKeyParser
	log     *zap.Logger

	region  string
	service string
}

func NewStore(loader Loader, log *zap.Logger, region, service string) *Store {
	fc := fastcache.New(64 * 1024 * 1024) //64MB
	return &Store{
		loader:  loader,
		secrets: fc,
		parser:  NewAccessKeyParser(),
		log:     log,
		region:  region,
		service: service,
	}
}

// Load replaces cached secrets with a fresh snapshot from the loader.
func (s *Store) Load() (err error) {
	var vals map[string]string
	if vals, err = s.loader.LoadCredentials(); err == nil {
		s.log.Debug(fmt.Sprintf("loading %d keys into the store..", len(vals)))
		for k, v := range vals {
			s.secrets.Set([]byte(k), []byte(v))
		}
		return nil
	}
	return err
}

// RunSync refreshes the store every interval until ctx is cancelled. Failed
// refreshes are retried with exponential backoff; the previous snapshot
// keeps serving in the meantime.
func (s *Store) RunSync(interval time.Duration, ctx context.Context) {
	go func(s *Store, ctx context.Context) {
		t := time.Tick(interval)
		for {
			select {
			case <-t:
				s.log.Sugar().Infof("starting credential store sync at %d", time.Now().UnixMilli())
				if err := s.loadWithRetry(ctx); err != nil {
					s.log.Error("unable to refresh credential store", zap.Error(err))
				}
				s.log.Sugar().Infof("finished credential store sync at %d", time.Now().UnixMilli())
			case <-ctx.Done():
				return
			}
		}
	}(s, ctx)
}

func (s *Store) loadWithRetry(ctx context.Context) error {
	return backoff.Retry(s.Load, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx))
}

// Credentials looks up the secret for an access key.
func (s *Store) Credentials(accessKeyID string) (sigv4.Credentials, error) {
	if secretKey := s.secrets.Get(nil, []byte(accessKeyID)); secretKey != nil {
		return sigv4.Credentials{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: string(secretKey),
		}, nil
	}
	return sigv4.Credentials{}, errNoAccessKeyInStore
}

// SignerFor builds a signer bound to the access key's stored secret. Extra
// options are applied on top of the store's region and service.
func (s *Store) SignerFor(accessKeyID string, opts ...sigv4.Option) (*sigv4.Signer, error) {
	creds, err := s.Credentials(accessKeyID)
	if err != nil {
		return nil, err
	}
	opts = append([]sigv4.Option{
		sigv4.WithCredentials(creds.AccessKeyID, creds.SecretAccessKey, ""),
		sigv4.WithRegionService(s.region, s.service),
	}, opts...)
	return sigv4.New(opts...)
}

// SignerForRequest extracts the access key from an incoming request's
// Authorization header and resolves its signer. Used when re-signing
// proxied requests under the caller's own identity.
func (s *Store) SignerForRequest(req *http.Request, opts ...sigv4.Option) (*sigv4.Signer, error) {
	accessKeyID, err := s.parser.FindAccessKey(req.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	return s.SignerFor(accessKeyID, opts...)
}

// FileLoader reads "ACCESS_KEY:SECRET_KEY" lines from a flat file. Blank
// lines and #-comments are skipped.
type FileLoader struct {
	Path string
}

func (f FileLoader) LoadCredentials() (map[string]string, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	vals := make(map[string]string)
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		access, secret, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed credential line %q", line)
		}
		vals[access] = secret
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vals, nil
}
