package smartwallet

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiser-pay/wiser-server/pkg/solana"
)

var testOwner = solana.MustPublicKeyFromBase58("codeHy87wGD5oMRLG75qKqsSi1vWE3oxNyYmXo5F9YR")

func TestGetWalletAccountAddress(t *testing.T) {
	address, bump, err := GetWalletAccountAddress(PROGRAM_ID, &GetWalletAccountAddressArgs{
		Owner: testOwner,
	})
	require.NoError(t, err)
	assert.Equal(t, "B6hKX9gHi9NHj2iPCjP9n1hMvd1JAZxPSAvNNq9gj1gX", base58.Encode(address))
	assert.EqualValues(t, 253, bump)
}

func TestGetWalletAddress(t *testing.T) {
	address, bump, err := GetWalletAddress(PROGRAM_ID, &GetWalletAddressArgs{
		Owner: testOwner,
	})
	require.NoError(t, err)
	assert.Equal(t, "J4JPudhiym35x6T6bwDFzjYXvdHtVTarWRTSXHzuaz6a", base58.Encode(address))
	assert.EqualValues(t, 254, bump)
}
