package main

import (
	"github.com/spf13/cobra"

	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
)

func newWalletCmd(newServices servicesFactory) *cobra.Command {
	var keypairPath string

	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Operate the smart wallet of the given keypair",
	}
	cmd.PersistentFlags().StringVar(&keypairPath, "keypair", "", "solana-keygen keypair file of the wallet owner")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the smart wallet, funding its PDA first when needed",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				wallet, err := loadKeypairWallet(cmd.Context(), keypairPath)
				if err != nil {
					return err
				}

				services, err := newServices()
				if err != nil {
					return err
				}

				sig, err := services.SmartWallets.InitializeWallet(cmd.Context(), wallet)
				if err != nil {
					return err
				}

				printf(cmd.OutOrStdout(), "%s\n", sig.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "request <sol>",
			Short: "Draw funds from the vault into the smart wallet",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := parseSolAmount(args[0])
				if err != nil {
					return err
				}

				wallet, err := loadKeypairWallet(cmd.Context(), keypairPath)
				if err != nil {
					return err
				}

				services, err := newServices()
				if err != nil {
					return err
				}

				sig, err := services.SmartWallets.RequestFunds(cmd.Context(), amount, wallet)
				if err != nil {
					return err
				}

				printf(cmd.OutOrStdout(), "%s\n", sig.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "return <sol>",
			Short: "Return funds from the smart wallet to the vault",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := parseSolAmount(args[0])
				if err != nil {
					return err
				}

				wallet, err := loadKeypairWallet(cmd.Context(), keypairPath)
				if err != nil {
					return err
				}

				services, err := newServices()
				if err != nil {
					return err
				}

				sig, err := services.SmartWallets.ReturnFunds(cmd.Context(), amount, wallet)
				if err != nil {
					return err
				}

				printf(cmd.OutOrStdout(), "%s\n", sig.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "balance",
			Short: "Print the smart wallet addresses and PDA balance",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				wallet, err := loadKeypairWallet(cmd.Context(), keypairPath)
				if err != nil {
					return err
				}

				services, err := newServices()
				if err != nil {
					return err
				}

				owner, err := common.NewAccountFromPublicKeyBytes(wallet.PublicKey())
				if err != nil {
					return err
				}

				accounts, err := services.SmartWallets.GetAccounts(owner)
				if err != nil {
					return err
				}

				initialized, err := services.SmartWallets.IsInitialized(cmd.Context(), owner)
				if err != nil {
					return err
				}

				balance, err := services.SmartWallets.GetWalletBalance(cmd.Context(), owner)
				if err != nil {
					return err
				}

				printf(
					cmd.OutOrStdout(),
					"owner:          %s\nwallet account: %s\nwallet pda:     %s\ninitialized:    %t\nbalance:        %.9f SOL\n",
					owner.String(),
					accounts.WalletAccount.String(),
					accounts.Wallet.String(),
					initialized,
					balance,
				)
				return nil
			},
		},
	)
	return cmd
}
