package vault

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wiser-pay/wiser-server/pkg/metrics"
	"github.com/wiser-pay/wiser-server/pkg/solana"
	vault_program "github.com/wiser-pay/wiser-server/pkg/solana/vault"
	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
	"github.com/wiser-pay/wiser-server/pkg/wiser/transaction"
)

const (
	withdrawServiceMetricsName = "vault.withdraw_service"
	withdrawEventName          = "VaultWithdrawal"
)

// WithdrawService moves funds from the vault to a recipient. Withdrawals are
// signed and paid for by the authority, never by the recipient.
type WithdrawService struct {
	log       *logrus.Entry
	client    solana.Client
	accounts  *common.VaultAccounts
	authority Authority
	submitter *transaction.Submitter
}

func NewWithdrawService(client solana.Client, accounts *common.VaultAccounts, authority Authority, submitter *transaction.Submitter) *WithdrawService {
	return &WithdrawService{
		log:       logrus.StandardLogger().WithField("type", "wiser/vault/withdraw"),
		client:    client,
		accounts:  accounts,
		authority: authority,
		submitter: submitter,
	}
}

// Withdraw sends amountSol from the vault to recipient, a base58 address.
func (s *WithdrawService) Withdraw(ctx context.Context, amountSol float64, recipient string) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, withdrawServiceMetricsName, "Withdraw")
	defer tracer.End()
	defer func() {
		tracer.OnError(err)
	}()

	recipientAccount, err := common.ParseAddress(recipient)
	if err != nil {
		return sig, errors.Wrap(ErrInvalidRecipient, err.Error())
	}

	lamports, err := common.SolToLamports(amountSol)
	if err != nil {
		return sig, invalidInput(err)
	}

	log := s.log.WithFields(logrus.Fields{
		"method":    "Withdraw",
		"recipient": recipientAccount.String(),
		"lamports":  lamports,
	})

	authorityKey := s.authority.GetPublicKey(ctx)
	if authorityKey == nil {
		log.Warn("authority key unavailable")
		return sig, ErrAuthorityNotInitialized
	}

	available, err := s.withdrawableBalance()
	if err != nil {
		log.WithError(err).Warn("failure getting vault balance")
		return sig, err
	}
	if available < lamports {
		log.WithField("available", available).Debug("vault balance too low")
		return sig, errors.Wrapf(ErrVaultInsufficientBalance, "vault can release %d lamports", available)
	}

	res, err := s.submitter.Submit(ctx, s.authority, s.buildWithdraw(authorityKey, recipientAccount.PublicKey().ToBytes(), lamports))
	if err != nil {
		log.WithError(err).Info("withdrawal failed")

		if isVaultInsufficientFunds(err) {
			return sig, errors.Wrap(ErrVaultInsufficientBalance, err.Error())
		}
		return sig, errors.Wrap(err, "error submitting withdrawal")
	}

	log.WithFields(logrus.Fields{
		"signature": res.Signature.String(),
		"attempts":  res.Attempts,
	}).Info("withdrawal confirmed")

	metrics.RecordEvent(ctx, withdrawEventName, map[string]interface{}{
		"lamports": lamports,
		"attempts": res.Attempts,
	})

	return res.Signature, nil
}

// withdrawableBalance is the vault balance above its rent exempt minimum,
// which the program never releases.
func (s *WithdrawService) withdrawableBalance() (uint64, error) {
	commitment := s.submitter.Commitment()

	balance, err := s.client.GetBalance(s.accounts.Vault.PublicKey().ToBytes(), commitment)
	if err != nil {
		return 0, upstreamUnavailable(err, "error getting vault balance")
	}

	reserved, err := s.client.GetMinimumBalanceForRentExemption(vault_program.VaultAccountSize)
	if err != nil {
		return 0, upstreamUnavailable(err, "error getting rent exempt minimum")
	}

	if balance <= reserved {
		return 0, nil
	}
	return balance - reserved, nil
}

func (s *WithdrawService) buildWithdraw(authority, recipient ed25519.PublicKey, lamports uint64) transaction.BuildFunc {
	return func(blockhash solana.Blockhash) (solana.Transaction, error) {
		txn := solana.NewTransaction(
			authority,
			vault_program.NewWithdrawInstruction(
				s.accounts.Program.PublicKey().ToBytes(),
				&vault_program.WithdrawInstructionAccounts{
					Vault:     s.accounts.Vault.PublicKey().ToBytes(),
					Recipient: recipient,
				},
				&vault_program.WithdrawInstructionArgs{
					Amount: lamports,
				},
			),
		)
		txn.SetBlockhash(blockhash)
		return txn, nil
	}
}
