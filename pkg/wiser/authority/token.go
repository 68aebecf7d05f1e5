package authority

import (
	"crypto/ed25519"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	keyRequestAudience    = "wiser/authority-key"
	keyRequestLifetime    = time.Minute
	maxKeyRequestLifetime = 5 * time.Minute
	keyRequestLeeway      = 5 * time.Second
)

// ErrInvalidKeyRequest is returned when a key request token fails verification
var ErrInvalidKeyRequest = errors.New("invalid authority key request token")

// NewKeyRequestToken returns a short lived EdDSA signed JWT authorizing the
// holder of client to fetch the authority key.
func NewKeyRequestToken(client ed25519.PrivateKey, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   base58.Encode(client.Public().(ed25519.PublicKey)),
		Audience:  jwt.ClaimStrings{keyRequestAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(keyRequestLifetime)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(client)
	if err != nil {
		return "", errors.Wrap(err, "error signing key request token")
	}
	return token, nil
}

// VerifyKeyRequestToken checks that token was signed by trusted, targets the
// key endpoint, and expires within a few minutes of being issued.
func VerifyKeyRequestToken(token string, trusted ed25519.PublicKey) error {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(_ *jwt.Token) (interface{}, error) {
			return trusted, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithAudience(keyRequestAudience),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(keyRequestLeeway),
	)
	if err != nil {
		return errors.Wrap(ErrInvalidKeyRequest, err.Error())
	}

	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return errors.Wrap(ErrInvalidKeyRequest, "iat and exp claims are required")
	}
	if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > maxKeyRequestLifetime {
		return errors.Wrapf(ErrInvalidKeyRequest, "token lifetime exceeds %s", maxKeyRequestLifetime)
	}
	return nil
}
