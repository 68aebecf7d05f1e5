package main

import (
	"github.com/spf13/cobra"
)

func newQuoteCmd(newServices servicesFactory) *cobra.Command {
	return &cobra.Command{
		Use:     "quote <usd>",
		Short:   "Convert a USD amount to SOL at the live price",
		Args:    cobra.ExactArgs(1),
		Example: "  wiser quote 25",
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := newServices()
			if err != nil {
				return err
			}

			quote, err := services.Quoter.QuoteString(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%g USD = %.9f SOL (SOL/USD %g)\n", quote.UsdAmount, quote.SolEquivalent, quote.SolUsdPrice)
			return nil
		},
	}
}
