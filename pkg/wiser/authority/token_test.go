package authority

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiser-pay/wiser-server/pkg/testutil"
)

func TestKeyRequestToken(t *testing.T) {
	client := testutil.GenerateSolanaKeypair(t)
	pub := client.Public().(ed25519.PublicKey)

	token, err := NewKeyRequestToken(client, time.Now())
	require.NoError(t, err)
	require.NoError(t, VerifyKeyRequestToken(token, pub))

	parsed, err := jwt.ParseWithClaims(token, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		return pub, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "EdDSA", parsed.Header["alg"])

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, base58.Encode(pub), claims["sub"])

	other := testutil.GenerateSolanaKeypair(t)
	testutil.AssertErrorIs(t, VerifyKeyRequestToken(token, other.Public().(ed25519.PublicKey)), ErrInvalidKeyRequest)
}

func TestKeyRequestToken_Rejections(t *testing.T) {
	client := testutil.GenerateSolanaKeypair(t)
	pub := client.Public().(ed25519.PublicKey)
	now := time.Now()

	sign := func(claims jwt.Claims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(client)
		require.NoError(t, err)
		return token
	}

	expired, err := NewKeyRequestToken(client, now.Add(-time.Hour))
	require.NoError(t, err)

	for _, token := range []string{
		"",
		"not-a-jwt",
		expired,
		sign(jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{"someone-else"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}),
		sign(jwt.RegisteredClaims{
			Audience: jwt.ClaimStrings{keyRequestAudience},
			IssuedAt: jwt.NewNumericDate(now),
		}),
		sign(jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{keyRequestAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		}),
	} {
		testutil.AssertErrorIs(t, VerifyKeyRequestToken(token, pub), ErrInvalidKeyRequest)
	}
}
