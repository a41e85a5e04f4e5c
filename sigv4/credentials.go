package sigv4

import (
	"context"
	"fmt"
)

// Credentials is the secret material a request is signed against. It is held
// only for the duration of a single signing call and never persisted.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// CredentialsProvider supplies credentials for a signing call. Resolution
// failures are propagated to the caller unchanged; the signer never retries.
type CredentialsProvider interface {
	Retrieve(ctx context.Context) (Credentials, error)
}

// StaticCredentialsProvider returns the same credentials on every call.
type StaticCredentialsProvider struct {
	Value Credentials
}

func (p StaticCredentialsProvider) Retrieve(context.Context) (Credentials, error) {
	if p.Value.AccessKeyID == "" || p.Value.SecretAccessKey == "" {
		return Credentials{}, fmt.Errorf("%w: static credentials are empty", ErrCredentialsUnavailable)
	}
	return p.Value, nil
}
