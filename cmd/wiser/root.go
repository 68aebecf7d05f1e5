package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wiser-pay/wiser-server/pkg/wiser/authority"
	"github.com/wiser-pay/wiser-server/pkg/wiser/server"
	"github.com/wiser-pay/wiser-server/pkg/wiser/vault"
)

// servicesFactory builds the services a command operates on.
type servicesFactory func() (*server.Services, error)

func defaultServicesFactory() (*server.Services, error) {
	configProvider := server.WithEnvConfigs()

	prices, err := server.NewPriceClient(configProvider)
	if err != nil {
		return nil, err
	}
	return server.NewServices(configProvider, server.NewSolanaClient(configProvider), prices)
}

func newRootCmd(newServices servicesFactory) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:          "wiser",
		Short:        "Wiser vault server and operator tooling",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return errors.Wrap(err, "invalid log level")
			}
			logrus.SetLevel(level)
			logrus.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level for command output")

	cmd.AddCommand(
		newServeCmd(),
		newQuoteCmd(newServices),
		newVaultCmd(newServices),
		newWalletCmd(newServices),
	)
	return cmd
}

func loadKeypairWallet(ctx context.Context, path string) (*vault.KeypairWallet, error) {
	if len(path) == 0 {
		return nil, errors.New("--keypair is required")
	}

	key, err := authority.NewFileSource(path).Load(ctx)
	if err != nil {
		return nil, err
	}
	return vault.NewKeypairWallet(key), nil
}

func parseSolAmount(raw string) (float64, error) {
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(vault.ErrInvalidInput, "invalid amount %q", raw)
	}
	return amount, nil
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
