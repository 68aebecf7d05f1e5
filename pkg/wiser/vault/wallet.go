package vault

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/wiser/transaction"
)

// Wallet is a connected end user wallet. A wallet without a public key is
// not connected.
type Wallet = transaction.Signer

// Authority is the privileged signer of withdrawals and vault
// initialization. GetPublicKey may load the key on first use and returns
// nil when it is unavailable.
type Authority interface {
	transaction.Signer
	GetPublicKey(ctx context.Context) ed25519.PublicKey
}

// KeypairWallet is a Wallet backed by a local key, as used by the CLI.
type KeypairWallet struct {
	key ed25519.PrivateKey
}

func NewKeypairWallet(key ed25519.PrivateKey) *KeypairWallet {
	return &KeypairWallet{key: key}
}

func (w *KeypairWallet) PublicKey() ed25519.PublicKey {
	if w == nil || len(w.key) != ed25519.PrivateKeySize {
		return nil
	}
	return w.key.Public().(ed25519.PublicKey)
}

// SignTransaction signs without changing the fee payer.
func (w *KeypairWallet) SignTransaction(_ context.Context, txn *solana.Transaction) error {
	if w.PublicKey() == nil {
		return ErrWalletNotConnected
	}
	if err := txn.Sign(w.key); err != nil {
		return errors.Wrap(err, "error signing transaction")
	}
	return nil
}

func walletPublicKey(wallet Wallet) ed25519.PublicKey {
	if wallet == nil {
		return nil
	}
	return wallet.PublicKey()
}
