package vault

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wiser-pay/wiser-server/pkg/metrics"
	"github.com/wiser-pay/wiser-server/pkg/solana"
	vault_program "github.com/wiser-pay/wiser-server/pkg/solana/vault"
	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
	"github.com/wiser-pay/wiser-server/pkg/wiser/transaction"
)

const (
	depositServiceMetricsName = "vault.deposit_service"
	depositEventName          = "VaultDeposit"
)

// DepositService moves funds from an end user's wallet into the vault. The
// user signs and pays for the deposit.
type DepositService struct {
	log       *logrus.Entry
	client    solana.Client
	accounts  *common.VaultAccounts
	submitter *transaction.Submitter
}

func NewDepositService(client solana.Client, accounts *common.VaultAccounts, submitter *transaction.Submitter) *DepositService {
	return &DepositService{
		log:       logrus.StandardLogger().WithField("type", "wiser/vault/deposit"),
		client:    client,
		accounts:  accounts,
		submitter: submitter,
	}
}

// Deposit transfers amountSol from the wallet into the vault and returns the
// confirmed transaction signature. Failures after validation are returned as
// a *DepositFailedError.
func (s *DepositService) Deposit(ctx context.Context, amountSol float64, wallet Wallet) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, depositServiceMetricsName, "Deposit")
	defer tracer.End()
	defer func() {
		tracer.OnError(err)
	}()

	lamports, err := common.SolToLamports(amountSol)
	if err != nil {
		return sig, invalidInput(err)
	}

	depositor := walletPublicKey(wallet)
	if depositor == nil {
		return sig, ErrWalletNotConnected
	}

	log := s.log.WithFields(logrus.Fields{
		"method":    "Deposit",
		"depositor": base58.Encode(depositor),
		"lamports":  lamports,
	})

	balance, err := s.client.GetBalance(depositor, s.submitter.Commitment())
	if err != nil {
		log.WithError(err).Warn("failure getting depositor balance")
		return sig, upstreamUnavailable(err, "error getting depositor balance")
	}
	if balance < lamports {
		log.WithField("balance", balance).Debug("depositor balance too low")
		return sig, errors.Wrapf(ErrInsufficientFunds, "wallet holds %d lamports", balance)
	}

	res, err := s.submitter.Submit(ctx, wallet, s.buildDeposit(depositor, lamports))
	if err != nil {
		failed := &DepositFailedError{Err: err}

		var submitErr *transaction.SubmitError
		if errors.As(err, &submitErr) {
			failed.Attempts = submitErr.Attempts
			failed.Err = submitErr.Err
		}

		log.WithError(failed.Err).WithField("attempts", failed.Attempts).Info("deposit failed")
		return sig, failed
	}

	log.WithFields(logrus.Fields{
		"signature": res.Signature.String(),
		"attempts":  res.Attempts,
	}).Info("deposit confirmed")

	metrics.RecordEvent(ctx, depositEventName, map[string]interface{}{
		"lamports": lamports,
		"attempts": res.Attempts,
	})

	return res.Signature, nil
}

func (s *DepositService) buildDeposit(depositor ed25519.PublicKey, lamports uint64) transaction.BuildFunc {
	return func(blockhash solana.Blockhash) (solana.Transaction, error) {
		txn := solana.NewTransaction(
			depositor,
			vault_program.NewDepositInstruction(
				s.accounts.Program.PublicKey().ToBytes(),
				&vault_program.DepositInstructionAccounts{
					Depositor: depositor,
					Vault:     s.accounts.Vault.PublicKey().ToBytes(),
				},
				&vault_program.DepositInstructionArgs{
					Amount: lamports,
				},
			),
		)
		txn.SetBlockhash(blockhash)
		return txn, nil
	}
}
