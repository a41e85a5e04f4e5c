package credcache

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coreweave/aws-sigv4/internal/mocks"
)

func TestStoreLoad(t *testing.T) {
	// Test Values
	storedKeys := map[string]string{
		"xyz": "abc",
		"abc": "xyz",
	}
	log, _ := zap.NewDevelopment()
	ctrl := gomock.NewController(t)
	mLoader := mocks.NewMockLoader(ctrl)
	mLoader.EXPECT().LoadCredentials().Times(1).Return(storedKeys, nil)

	s := NewStore(mLoader, log, "us-east-1", "s3")

	err := s.Load()
	assert.NoError(t, err)
}

func TestStoreLoadError(t *testing.T) {
	expectedError := errors.New("error fetching keys")
	log, _ := zap.NewDevelopment()
	ctrl := gomock.NewController(t)
	mLoader := mocks.NewMockLoader(ctrl)
	mLoader.EXPECT().LoadCredentials().Times(1).Return(nil, expectedError)

	s := NewStore(mLoader, log, "us-east-1", "s3")

	err := s.Load()
	assert.EqualError(t, expectedError, err.Error())
}

func TestStoreCredentials(t *testing.T) {
	storedKeys := map[string]string{
		"AKIDEXAMPLE": "topsecret",
	}
	log, _ := zap.NewDevelopment()
	ctrl := gomock.NewController(t)
	mLoader := mocks.NewMockLoader(ctrl)
	mLoader.EXPECT().LoadCredentials().Times(1).Return(storedKeys, nil)

	s := NewStore(mLoader, log, "us-east-1", "s3")
	require.NoError(t, s.Load())

	creds, err := s.Credentials("AKIDEXAMPLE")
	assert.NoError(t, err)
	assert.Equal(t, "topsecret", creds.SecretAccessKey)

	_, err = s.Credentials("UNKNOWN")
	assert.Equal(t, errNoAccessKeyInStore, err)
}

func TestStoreSignerFor(t *testing.T) {
	storedKeys := map[string]string{
		"AKIDEXAMPLE": "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
	}
	log, _ := zap.NewDevelopment()
	ctrl := gomock.NewController(t)
	mLoader := mocks.NewMockLoader(ctrl)
	mLoader.EXPECT().LoadCredentials().Times(1).Return(storedKeys, nil)

	s := NewStore(mLoader, log, "us-east-1", "service")
	require.NoError(t, s.Load())

	signer, err := s.SignerFor("AKIDEXAMPLE")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "https://example.amazonaws.com/", nil)
	require.NoError(t, err)
	assert.NoError(t, signer.SignHTTP(context.Background(), req, ""))
	assert.Contains(t, req.Header.Get("Authorization"),
		"Credential=AKIDEXAMPLE/")

	_, err = s.SignerFor("UNKNOWN")
	assert.Equal(t, errNoAccessKeyInStore, err)
}

func TestStoreSignerForRequest(t *testing.T) {
	storedKeys := map[string]string{
		"AKIDEXAMPLE": "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
	}
	log, _ := zap.NewDevelopment()
	ctrl := gomock.NewController(t)
	mLoader := mocks.NewMockLoader(ctrl)
	mLoader.EXPECT().LoadCredentials().Times(1).Return(storedKeys, nil)

	s := NewStore(mLoader, log, "us-east-1", "s3")
	require.NoError(t, s.Load())

	req, err := http.NewRequest(http.MethodGet, "https://example.amazonaws.com/", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization",
		"AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20220816/us-east-1/s3/aws4_request")

	_, err = s.SignerForRequest(req)
	assert.NoError(t, err)

	req.Header.Set("Authorization", "Bearer nope")
	_, err = s.SignerForRequest(req)
	assert.Equal(t, ErrNoAccessKey, err)
}

func TestStoreRunSync(t *testing.T) {
	log, _ := zap.NewDevelopment()
	ctrl := gomock.NewController(t)
	mLoader := mocks.NewMockLoader(ctrl)
	mLoader.EXPECT().LoadCredentials().MinTimes(1).Return(map[string]string{"a": "b"}, nil)

	s := NewStore(mLoader, log, "us-east-1", "s3")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.RunSync(10*time.Millisecond, ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()

	_, err := s.Credentials("a")
	assert.NoError(t, err)
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys")
	content := "# service accounts\nAKIDEXAMPLE:topsecret\n\nother:s3cr3t\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	vals, err := FileLoader{Path: path}.LoadCredentials()
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{
		"AKIDEXAMPLE": "topsecret",
		"other":       "s3cr3t",
	}, vals)
}

func TestFileLoaderMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys")
	require.NoError(t, os.WriteFile(path, []byte("no-separator\n"), 0o600))

	_, err := FileLoader{Path: path}.LoadCredentials()
	assert.Error(t, err)
}

func TestFileLoaderMissingFile(t *testing.T) {
	_, err := FileLoader{Path: "/does/not/exist"}.LoadCredentials()
	assert.Error(t, err)
}
