package main

import (
	"github.com/spf13/cobra"
)

func newVaultCmd(newServices servicesFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Inspect and operate the vault",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "address",
			Short: "Print the vault PDA",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				services, err := newServices()
				if err != nil {
					return err
				}

				printf(cmd.OutOrStdout(), "%s\n", services.VaultAccounts.Vault.String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "balance",
			Short: "Print the vault address, state and balance",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				services, err := newServices()
				if err != nil {
					return err
				}

				info, err := services.Balances.GetVaultInfo(cmd.Context())
				if err != nil {
					return err
				}

				printf(cmd.OutOrStdout(), "address:     %s\ninitialized: %t\nbalance:     %.9f SOL\n", info.Address, info.Initialized, info.Balance)
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Initialize the vault using the authority key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				services, err := newServices()
				if err != nil {
					return err
				}

				sig, err := services.Initializer.Initialize(cmd.Context())
				if err != nil {
					return err
				}

				printf(cmd.OutOrStdout(), "%s\n", sig.String())
				return nil
			},
		},
		newVaultDepositCmd(newServices),
		&cobra.Command{
			Use:     "withdraw <sol> <recipient>",
			Short:   "Withdraw from the vault using the authority key",
			Args:    cobra.ExactArgs(2),
			Example: "  wiser vault withdraw 0.5 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := parseSolAmount(args[0])
				if err != nil {
					return err
				}

				services, err := newServices()
				if err != nil {
					return err
				}

				sig, err := services.Withdrawals.Withdraw(cmd.Context(), amount, args[1])
				if err != nil {
					return err
				}

				printf(cmd.OutOrStdout(), "%s\n", sig.String())
				return nil
			},
		},
	)
	return cmd
}

func newVaultDepositCmd(newServices servicesFactory) *cobra.Command {
	var keypairPath string

	cmd := &cobra.Command{
		Use:     "deposit <sol>",
		Short:   "Deposit into the vault, signed by the given keypair",
		Args:    cobra.ExactArgs(1),
		Example: "  wiser vault deposit 0.1 --keypair ~/.config/solana/id.json",
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

			sig, err := services.Deposits.Deposit(cmd.Context(), amount, wallet)
			if err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s\n", sig.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&keypairPath, "keypair", "", "solana-keygen keypair file of the depositor")
	return cmd
}
