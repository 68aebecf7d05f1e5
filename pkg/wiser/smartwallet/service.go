// Package smartwallet manages per owner smart wallets that draw funds from
// and return funds to the vault. Every operation is signed by the owner.
package smartwallet

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wiser-pay/wiser-server/pkg/cache"
	"github.com/wiser-pay/wiser-server/pkg/metrics"
	"github.com/wiser-pay/wiser-server/pkg/solana"
	smart_wallet "github.com/wiser-pay/wiser-server/pkg/solana/smartwallet"
	"github.com/wiser-pay/wiser-server/pkg/solana/system"
	"github.com/wiser-pay/wiser-server/pkg/sync"
	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
	"github.com/wiser-pay/wiser-server/pkg/wiser/transaction"
	"github.com/wiser-pay/wiser-server/pkg/wiser/vault"
)

const (
	metricsStructName = "smartwallet.service"

	// DefaultFundAmountSol is transferred into the wallet PDA when funding it
	// ahead of initialization.
	DefaultFundAmountSol = 0.05

	// MinWalletPdaBalanceSol is the wallet PDA balance below which
	// initialization funds it first.
	MinWalletPdaBalanceSol = 0.02

	accountsCacheBudget = 10_000
	ownerLockStripes    = 64
)

type Service struct {
	log       *logrus.Entry
	client    solana.Client
	program   *common.Account
	vault     *common.VaultAccounts
	submitter *transaction.Submitter

	// Operations of the same owner run one at a time.
	ownerLocks    *sync.StripedLock
	accountsCache cache.Cache[*common.SmartWalletAccounts]
}

func NewService(client solana.Client, program *common.Account, vaultAccounts *common.VaultAccounts, submitter *transaction.Submitter) *Service {
	return &Service{
		log:       logrus.StandardLogger().WithField("type", "wiser/smartwallet"),
		client:    client,
		program:   program,
		vault:     vaultAccounts,
		submitter: submitter,

		ownerLocks:    sync.NewStripedLock(ownerLockStripes),
		accountsCache: cache.NewCache[*common.SmartWalletAccounts]("smartwallet_accounts", accountsCacheBudget),
	}
}

// GetAccounts derives the smart wallet accounts of owner. Derivations are
// cached per owner.
func (s *Service) GetAccounts(owner *common.Account) (*common.SmartWalletAccounts, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	key := owner.String()
	if cached, ok := s.accountsCache.Retrieve(key); ok {
		return cached, nil
	}

	accounts, err := owner.GetSmartWalletAccounts(s.program)
	if err != nil {
		return nil, err
	}

	// A concurrent derivation may have won the insert, which is harmless.
	_ = s.accountsCache.Insert(key, accounts, 1)
	return accounts, nil
}

// IsInitialized reports whether owner's wallet account exists under the
// program.
func (s *Service) IsInitialized(ctx context.Context, owner *common.Account) (bool, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "IsInitialized")
	defer tracer.End()

	accounts, err := s.GetAccounts(owner)
	if err != nil {
		return false, errors.Wrap(ErrInvalidInput, err.Error())
	}

	info, err := s.client.GetAccountInfo(accounts.WalletAccount.PublicKey().ToBytes(), s.submitter.Commitment())
	if err == solana.ErrNoAccountInfo {
		return false, nil
	} else if err != nil {
		tracer.OnError(err)
		return false, errors.Wrapf(vault.ErrUpstreamUnavailable, "error getting wallet account: %v", err)
	}

	return bytes.Equal(info.Owner, s.program.PublicKey().ToBytes()), nil
}

// GetWalletAccount reads and decodes owner's wallet account.
func (s *Service) GetWalletAccount(ctx context.Context, owner *common.Account) (*smart_wallet.WalletAccount, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetWalletAccount")
	defer tracer.End()

	accounts, err := s.GetAccounts(owner)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}

	info, err := s.client.GetAccountInfo(accounts.WalletAccount.PublicKey().ToBytes(), s.submitter.Commitment())
	if err == solana.ErrNoAccountInfo {
		return nil, ErrWalletNotInitialized
	} else if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrapf(vault.ErrUpstreamUnavailable, "error getting wallet account: %v", err)
	}

	var account smart_wallet.WalletAccount
	if err := account.Unmarshal(info.Data); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling wallet account")
	}
	return &account, nil
}

// GetWalletBalance returns the balance of owner's wallet PDA in SOL.
func (s *Service) GetWalletBalance(ctx context.Context, owner *common.Account) (float64, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetWalletBalance")
	defer tracer.End()

	accounts, err := s.GetAccounts(owner)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidInput, err.Error())
	}

	lamports, err := s.client.GetBalance(accounts.Wallet.PublicKey().ToBytes(), s.submitter.Commitment())
	if err == solana.ErrNoBalance {
		return 0, nil
	} else if err != nil {
		tracer.OnError(err)
		return 0, errors.Wrap(vault.ErrBalanceReadFailed, err.Error())
	}
	return common.LamportsToSol(lamports), nil
}

// FundWalletPda transfers amountSol from the owner's wallet into the wallet
// PDA.
func (s *Service) FundWalletPda(ctx context.Context, wallet vault.Wallet, amountSol float64) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "FundWalletPda")
	defer tracer.End()

	owner, accounts, err := s.walletAccounts(wallet)
	if err != nil {
		return solana.Signature{}, err
	}

	unlock := s.ownerLocks.Lock(owner)
	defer unlock()

	sig, err := s.fundWalletPda(ctx, wallet, owner, accounts, amountSol)
	tracer.OnError(err)
	return sig, err
}

func (s *Service) fundWalletPda(ctx context.Context, wallet vault.Wallet, owner ed25519.PublicKey, accounts *common.SmartWalletAccounts, amountSol float64) (solana.Signature, error) {
	lamports, err := common.SolToLamports(amountSol)
	if err != nil {
		return solana.Signature{}, errors.Wrap(ErrInvalidInput, err.Error())
	}

	return s.submit(ctx, wallet, func() solana.Instruction {
		return system.Transfer(owner, accounts.Wallet.PublicKey().ToBytes(), lamports)
	})
}

// InitializeWallet creates the owner's wallet account, funding the wallet PDA
// first when its balance is low.
func (s *Service) InitializeWallet(ctx context.Context, wallet vault.Wallet) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "InitializeWallet")
	defer tracer.End()

	owner, accounts, err := s.walletAccounts(wallet)
	if err != nil {
		return solana.Signature{}, err
	}

	unlock := s.ownerLocks.Lock(owner)
	defer unlock()

	log := s.log.WithFields(logrus.Fields{
		"method": "InitializeWallet",
		"owner":  accounts.Owner.String(),
	})

	initialized, err := s.IsInitialized(ctx, accounts.Owner)
	if err != nil {
		return solana.Signature{}, err
	}
	if initialized {
		return solana.Signature{}, ErrWalletAlreadyInitialized
	}

	balance, err := s.GetWalletBalance(ctx, accounts.Owner)
	if err != nil {
		log.WithError(err).Warn("failure checking wallet pda balance")
	} else if balance < MinWalletPdaBalanceSol {
		log.WithField("balance", balance).Info("funding wallet pda before initialization")
		if _, err := s.fundWalletPda(ctx, wallet, owner, accounts, DefaultFundAmountSol); err != nil {
			log.WithError(err).Warn("failure funding wallet pda")
		}
	}

	sig, err := s.submit(ctx, wallet, func() solana.Instruction {
		return smart_wallet.NewInitializeWalletInstruction(
			s.program.PublicKey().ToBytes(),
			&smart_wallet.InitializeWalletInstructionAccounts{
				Owner:         owner,
				WalletAccount: accounts.WalletAccount.PublicKey().ToBytes(),
				Wallet:        accounts.Wallet.PublicKey().ToBytes(),
			},
		)
	})
	if err != nil {
		tracer.OnError(err)
		return sig, err
	}

	log.WithField("signature", sig.String()).Info("wallet initialized")
	return sig, nil
}

// RequestFunds draws amountSol from the vault into the owner's wallet PDA.
func (s *Service) RequestFunds(ctx context.Context, amountSol float64, wallet vault.Wallet) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "RequestFunds")
	defer tracer.End()

	lamports, owner, accounts, err := s.prepareTransfer(ctx, amountSol, wallet)
	if err != nil {
		return solana.Signature{}, err
	}

	unlock := s.ownerLocks.Lock(owner)
	defer unlock()

	sig, err := s.submit(ctx, wallet, func() solana.Instruction {
		return smart_wallet.NewExecuteTransactionInstruction(
			s.program.PublicKey().ToBytes(),
			&smart_wallet.ExecuteTransactionInstructionAccounts{
				WalletAccount: accounts.WalletAccount.PublicKey().ToBytes(),
				Wallet:        accounts.Wallet.PublicKey().ToBytes(),
				Vault:         s.vault.Vault.PublicKey().ToBytes(),
				Owner:         owner,
				VaultProgram:  s.vault.Program.PublicKey().ToBytes(),
			},
			&smart_wallet.ExecuteTransactionInstructionArgs{
				Amount: lamports,
			},
		)
	})
	tracer.OnError(err)
	return sig, err
}

// ReturnFunds moves amountSol from the owner's wallet PDA back to the vault.
func (s *Service) ReturnFunds(ctx context.Context, amountSol float64, wallet vault.Wallet) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ReturnFunds")
	defer tracer.End()

	lamports, owner, accounts, err := s.prepareTransfer(ctx, amountSol, wallet)
	if err != nil {
		return solana.Signature{}, err
	}

	unlock := s.ownerLocks.Lock(owner)
	defer unlock()

	sig, err := s.submit(ctx, wallet, func() solana.Instruction {
		return smart_wallet.NewReturnFundsInstruction(
			s.program.PublicKey().ToBytes(),
			&smart_wallet.ReturnFundsInstructionAccounts{
				WalletAccount: accounts.WalletAccount.PublicKey().ToBytes(),
				Wallet:        accounts.Wallet.PublicKey().ToBytes(),
				Vault:         s.vault.Vault.PublicKey().ToBytes(),
				Owner:         owner,
			},
			&smart_wallet.ReturnFundsInstructionArgs{
				Amount: lamports,
			},
		)
	})
	tracer.OnError(err)
	return sig, err
}

func (s *Service) prepareTransfer(ctx context.Context, amountSol float64, wallet vault.Wallet) (uint64, ed25519.PublicKey, *common.SmartWalletAccounts, error) {
	lamports, err := common.SolToLamports(amountSol)
	if err != nil {
		return 0, nil, nil, errors.Wrap(ErrInvalidInput, err.Error())
	}

	owner, accounts, err := s.walletAccounts(wallet)
	if err != nil {
		return 0, nil, nil, err
	}

	_, err = s.client.GetAccountInfo(accounts.WalletAccount.PublicKey().ToBytes(), s.submitter.Commitment())
	if err == solana.ErrNoAccountInfo {
		return 0, nil, nil, ErrWalletNotInitialized
	} else if err != nil {
		return 0, nil, nil, errors.Wrapf(vault.ErrUpstreamUnavailable, "error getting wallet account: %v", err)
	}

	return lamports, owner, accounts, nil
}

func (s *Service) walletAccounts(wallet vault.Wallet) (ed25519.PublicKey, *common.SmartWalletAccounts, error) {
	if wallet == nil || wallet.PublicKey() == nil {
		return nil, nil, ErrWalletNotConnected
	}
	pub := wallet.PublicKey()

	owner, err := common.NewAccountFromPublicKeyBytes(pub)
	if err != nil {
		return nil, nil, errors.Wrap(ErrWalletNotConnected, err.Error())
	}

	accounts, err := s.GetAccounts(owner)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error deriving smart wallet accounts")
	}
	return pub, accounts, nil
}

func (s *Service) submit(ctx context.Context, wallet vault.Wallet, instruction func() solana.Instruction) (solana.Signature, error) {
	payer := wallet.PublicKey()

	res, err := s.submitter.Submit(ctx, wallet, func(blockhash solana.Blockhash) (solana.Transaction, error) {
		txn := solana.NewTransaction(payer, instruction())
		txn.SetBlockhash(blockhash)
		return txn, nil
	})
	if err != nil {
		return solana.Signature{}, mapProgramError(err)
	}
	return res.Signature, nil
}
