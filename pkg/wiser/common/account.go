package common

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/solana/smartwallet"
	"github.com/wiser-pay/wiser-server/pkg/solana/vault"
)

// ErrInvalidAddress indicates a string that is not a base58 encoded 32 byte
// public key
var ErrInvalidAddress = errors.New("invalid account address")

type Account struct {
	publicKey  *Key
	privateKey *Key // Optional
}

// VaultAccounts are the accounts of a vault program deployment
type VaultAccounts struct {
	Program *Account

	Vault     *Account
	VaultBump uint8
}

// SmartWalletAccounts are the smart wallet accounts of a single owner
type SmartWalletAccounts struct {
	Program *Account
	Owner   *Account

	WalletAccount     *Account
	WalletAccountBump uint8

	Wallet     *Account
	WalletBump uint8
}

func NewAccountFromPublicKey(publicKey *Key) (*Account, error) {
	account := &Account{
		publicKey: publicKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPublicKeyBytes(publicKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

func NewAccountFromPublicKeyString(publicKey string) (*Account, error) {
	key, err := NewKeyFromString(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

// ParseAddress parses a base58 account address. Any failure is reported as
// ErrInvalidAddress.
func ParseAddress(address string) (*Account, error) {
	account, err := NewAccountFromPublicKeyString(address)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidAddress, err.Error())
	}
	return account, nil
}

func NewAccountFromPrivateKey(privateKey *Key) (*Account, error) {
	if privateKey == nil || privateKey.IsPublic() {
		return nil, errors.New("private key is required")
	}

	publicKeyBytes := ed25519.PrivateKey(privateKey.ToBytes()).Public().(ed25519.PublicKey)
	publicKey, err := NewKeyFromBytes(publicKeyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "error creating public key from private key")
	}

	account := &Account{
		publicKey:  publicKey,
		privateKey: privateKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPrivateKeyBytes(privateKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(privateKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPrivateKey(key)
}

func NewAccountFromPrivateKeyString(privateKey string) (*Account, error) {
	key, err := NewKeyFromString(privateKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPrivateKey(key)
}

func NewRandomAccount() (*Account, error) {
	key, err := NewRandomKey()
	if err != nil {
		return nil, err
	}

	account, err := NewAccountFromPrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid account")
	}

	return account, nil
}

func (a *Account) PublicKey() *Key {
	return a.publicKey
}

func (a *Account) PrivateKey() *Key {
	return a.privateKey
}

func (a *Account) Sign(message []byte) ([]byte, error) {
	if a.privateKey == nil {
		return nil, errors.New("private key not available")
	}

	signature := ed25519.Sign(a.privateKey.ToBytes(), message)
	return signature, nil
}

// GetVaultAccounts derives the vault of the program a refers to.
func (a *Account) GetVaultAccounts() (*VaultAccounts, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating program account")
	}

	vaultAddress, vaultBump, err := vault.GetVaultAddress(a.PublicKey().ToBytes())
	if err != nil {
		return nil, errors.Wrap(err, "error getting vault address")
	}

	vaultAccount, err := NewAccountFromPublicKeyBytes(vaultAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid vault address")
	}

	return &VaultAccounts{
		Program:   a,
		Vault:     vaultAccount,
		VaultBump: vaultBump,
	}, nil
}

// GetSmartWalletAccounts derives the smart wallet accounts owned by a under
// the smart wallet program.
func (a *Account) GetSmartWalletAccounts(program *Account) (*SmartWalletAccounts, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating owner account")
	}
	if err := program.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating program account")
	}

	walletAccountAddress, walletAccountBump, err := smartwallet.GetWalletAccountAddress(
		program.PublicKey().ToBytes(),
		&smartwallet.GetWalletAccountAddressArgs{
			Owner: a.PublicKey().ToBytes(),
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "error getting wallet account address")
	}

	walletAddress, walletBump, err := smartwallet.GetWalletAddress(
		program.PublicKey().ToBytes(),
		&smartwallet.GetWalletAddressArgs{
			Owner: a.PublicKey().ToBytes(),
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "error getting wallet address")
	}

	walletAccount, err := NewAccountFromPublicKeyBytes(walletAccountAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet account address")
	}

	wallet, err := NewAccountFromPublicKeyBytes(walletAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet address")
	}

	return &SmartWalletAccounts{
		Program:           program,
		Owner:             a,
		WalletAccount:     walletAccount,
		WalletAccountBump: walletAccountBump,
		Wallet:            wallet,
		WalletBump:        walletBump,
	}, nil
}

func (a *Account) Validate() error {
	if a == nil {
		return errors.New("account is nil")
	}

	if err := a.publicKey.Validate(); err != nil {
		return errors.Wrap(err, "error validating public key")
	}
	if !a.publicKey.IsPublic() {
		return errors.New("public key isn't public")
	}

	if a.privateKey != nil {
		if err := a.privateKey.Validate(); err != nil {
			return errors.Wrap(err, "error validating private key")
		}
		if a.privateKey.IsPublic() {
			return errors.New("private key isn't private")
		}

		expected := ed25519.PrivateKey(a.privateKey.ToBytes()).Public().(ed25519.PublicKey)
		if !a.publicKey.Equals(&Key{bytesValue: expected}) {
			return errors.New("private key doesn't map to public key")
		}
	}

	return nil
}

func (a *Account) String() string {
	return a.publicKey.ToBase58()
}
