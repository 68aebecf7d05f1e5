package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
)

// NewRandomAccount returns an account with a freshly generated keypair.
func NewRandomAccount(t *testing.T) *common.Account {
	account, err := common.NewRandomAccount()
	require.NoError(t, err)
	return account
}
