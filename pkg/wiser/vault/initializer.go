package vault

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wiser-pay/wiser-server/pkg/metrics"
	"github.com/wiser-pay/wiser-server/pkg/solana"
	vault_program "github.com/wiser-pay/wiser-server/pkg/solana/vault"
	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
	"github.com/wiser-pay/wiser-server/pkg/wiser/transaction"
)

const initializerMetricsName = "vault.initializer"

// Initializer creates the vault account of a program deployment.
type Initializer struct {
	log       *logrus.Entry
	client    solana.Client
	accounts  *common.VaultAccounts
	authority Authority
	submitter *transaction.Submitter
}

func NewInitializer(client solana.Client, accounts *common.VaultAccounts, authority Authority, submitter *transaction.Submitter) *Initializer {
	return &Initializer{
		log:       logrus.StandardLogger().WithField("type", "wiser/vault/initializer"),
		client:    client,
		accounts:  accounts,
		authority: authority,
		submitter: submitter,
	}
}

// Initialize submits the authority signed initialize instruction. When the
// vault already exists under the program, ErrAlreadyInitialized is returned
// without submitting anything.
func (i *Initializer) Initialize(ctx context.Context) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, initializerMetricsName, "Initialize")
	defer tracer.End()
	defer func() {
		if err != ErrAlreadyInitialized {
			tracer.OnError(err)
		}
	}()

	log := i.log.WithFields(logrus.Fields{
		"method": "Initialize",
		"vault":  i.accounts.Vault.String(),
	})

	initialized, err := isVaultInitialized(i.client, i.accounts, i.submitter.Commitment())
	if err != nil {
		log.WithError(err).Warn("failure checking vault account")
		return sig, err
	}
	if initialized {
		log.Debug("vault already initialized")
		return sig, ErrAlreadyInitialized
	}

	payer := i.authority.GetPublicKey(ctx)
	if payer == nil {
		return sig, ErrAuthorityNotInitialized
	}

	res, err := i.submitter.Submit(ctx, i.authority, func(blockhash solana.Blockhash) (solana.Transaction, error) {
		txn := solana.NewTransaction(
			payer,
			vault_program.NewInitializeInstruction(
				i.accounts.Program.PublicKey().ToBytes(),
				&vault_program.InitializeInstructionAccounts{
					Payer: payer,
					Vault: i.accounts.Vault.PublicKey().ToBytes(),
				},
			),
		)
		txn.SetBlockhash(blockhash)
		return txn, nil
	})
	if err != nil {
		if isAlreadyInitialized(err) {
			return sig, ErrAlreadyInitialized
		}

		log.WithError(err).Warn("vault initialization failed")
		return sig, errors.Wrap(err, "error initializing vault")
	}

	log.WithField("signature", res.Signature.String()).Info("vault initialized")
	return res.Signature, nil
}

func isVaultInitialized(client solana.Client, accounts *common.VaultAccounts, commitment solana.Commitment) (bool, error) {
	info, err := client.GetAccountInfo(accounts.Vault.PublicKey().ToBytes(), commitment)
	if err == solana.ErrNoAccountInfo {
		return false, nil
	} else if err != nil {
		return false, upstreamUnavailable(err, "error getting vault account")
	}

	return bytes.Equal(info.Owner, accounts.Program.PublicKey().ToBytes()), nil
}
