package authority

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/config"
)

// ErrNoKeyConfigured indicates the source has no key material configured
var ErrNoKeyConfigured = errors.New("authority key not configured")

// Source loads the authority's signing key.
type Source interface {
	Load(ctx context.Context) (ed25519.PrivateKey, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context) (ed25519.PrivateKey, error)

func (f SourceFunc) Load(ctx context.Context) (ed25519.PrivateKey, error) {
	return f(ctx)
}

type chainSource struct {
	sources []Source
}

// NewChainSource returns a Source that tries each source in order, moving
// on only when a source has no key configured.
func NewChainSource(sources ...Source) Source {
	return &chainSource{sources: sources}
}

func (s *chainSource) Load(ctx context.Context) (ed25519.PrivateKey, error) {
	for _, source := range s.sources {
		key, err := source.Load(ctx)
		if errors.Is(err, ErrNoKeyConfigured) {
			continue
		}
		return key, err
	}
	return nil, ErrNoKeyConfigured
}

type configSource struct {
	secret config.String
}

// NewConfigSource returns a Source reading a base58 encoded secret key from
// config.
func NewConfigSource(secret config.String) Source {
	return &configSource{secret: secret}
}

func (s *configSource) Load(ctx context.Context) (ed25519.PrivateKey, error) {
	value, err := s.secret.GetSafe(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error reading authority secret config")
	}
	return ParseBase58PrivateKey(value)
}

type fileSource struct {
	path string
}

// NewFileSource returns a Source reading a keypair file in the JSON byte
// array format written by solana-keygen.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

func (s *fileSource) Load(_ context.Context) (ed25519.PrivateKey, error) {
	if len(s.path) == 0 {
		return nil, ErrNoKeyConfigured
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading keypair file %s", s.path)
	}

	var raw []byte
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrap(err, "keypair file is not a json byte array")
	}
	for _, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("invalid byte value in keypair file: %d", v)
		}
		raw = append(raw, byte(v))
	}

	return ParsePrivateKey(raw)
}

type remoteSource struct {
	url    string
	signer ed25519.PrivateKey
	client *resty.Client
}

// NewRemoteSource returns a Source fetching the secret key from a restricted
// endpoint responding with {"key": "<base58 secret>"}. When signer is set,
// each request carries a fresh key request token signed by it as a bearer
// token.
func NewRemoteSource(url string, signer ed25519.PrivateKey) Source {
	url = strings.TrimRight(url, "/")
	return &remoteSource{
		url:    url,
		signer: signer,
		client: resty.New().SetTimeout(10 * time.Second),
	}
}

type remoteKeyResponse struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

func (s *remoteSource) Load(ctx context.Context) (ed25519.PrivateKey, error) {
	if len(s.url) == 0 {
		return nil, ErrNoKeyConfigured
	}

	var body remoteKeyResponse
	req := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(&body).
		SetError(&body)
	if s.signer != nil {
		token, err := NewKeyRequestToken(s.signer, time.Now())
		if err != nil {
			return nil, err
		}
		req.SetAuthToken(token)
	}

	resp, err := req.Get(s.url)
	if err != nil {
		return nil, errors.Wrap(err, "error fetching authority key")
	}
	if resp.IsError() {
		return nil, errors.Errorf("authority key endpoint returned %d: %s", resp.StatusCode(), body.Error)
	}
	if len(body.Key) == 0 {
		return nil, errors.New("authority key not found in response")
	}

	return ParseBase58PrivateKey(body.Key)
}

// ParseBase58PrivateKey decodes a base58 secret key.
func ParseBase58PrivateKey(value string) (ed25519.PrivateKey, error) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return nil, ErrNoKeyConfigured
	}

	raw, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrap(err, "authority key is not valid base58")
	}
	return ParsePrivateKey(raw)
}

// ParsePrivateKey accepts a 64 byte secret key, whose second half must be the
// matching public key, or a 32 byte seed.
func ParsePrivateKey(raw []byte) (ed25519.PrivateKey, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		key := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !key.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(raw[ed25519.SeedSize:])) {
			return nil, errors.New("secret key does not match its public key")
		}
		return key, nil
	default:
		return nil, errors.Errorf("invalid secret key length: %d", len(raw))
	}
}
