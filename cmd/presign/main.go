package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coreweave/aws-sigv4/internal/cfg"
	"github.com/coreweave/aws-sigv4/sigv4"
)

func main() {
	var err error
	ctx := context.Background()

	var logger *zap.Logger
	opts := cfg.NewOptions()
	if opts.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}

	expires, err := time.ParseDuration(opts.Expires)
	if err != nil {
		logger.Sugar().Fatalf("invalid expires duration: %s", err.Error())
	}

	signerOpts := []sigv4.Option{
		sigv4.WithCredentials(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		sigv4.WithRegionService(opts.Region, opts.Service),
		sigv4.WithLogger(logger),
	}
	if opts.SingleEncode {
		signerOpts = append(signerOpts, sigv4.WithSingleURIEncode())
	}
	if opts.NoNormalize {
		signerOpts = append(signerOpts, sigv4.WithoutPathNormalization())
	}

	signer, err := sigv4.New(signerOpts...)
	if err != nil {
		logger.Sugar().Fatalf("unable to build signer: %s", err.Error())
	}

	req, err := http.NewRequest(opts.Method, opts.URL, nil)
	if err != nil {
		logger.Sugar().Fatalf("invalid request URL: %s", err.Error())
	}
	for _, h := range opts.Headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			logger.Sugar().Fatalf("malformed header argument: %q", h)
		}
		req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	payloadHash := ""
	if opts.UnsignedPayload {
		payloadHash = sigv4.UnsignedPayload
	}

	u, signed, err := signer.PresignHTTP(ctx, req, payloadHash, expires)
	if err != nil {
		logger.Sugar().Fatalf("unable to presign request: %s", err.Error())
	}

	for name := range signed {
		if name == "Host" {
			continue
		}
		logger.Sugar().Debugf("send header with the request: %s: %s", name, signed.Get(name))
	}
	fmt.Println(u.String())
}
