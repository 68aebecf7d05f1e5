package web

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/currency"
	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
	"github.com/wiser-pay/wiser-server/pkg/wiser/vault"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{currency.ErrInvalidInput, http.StatusBadRequest},
	{currency.ErrInvalidPriceData, http.StatusBadGateway},
	{currency.ErrUpstreamUnavailable, http.StatusBadGateway},

	{common.ErrInvalidAddress, http.StatusBadRequest},
	{vault.ErrInvalidInput, http.StatusBadRequest},
	{vault.ErrInvalidRecipient, http.StatusBadRequest},
	{vault.ErrAlreadyInitialized, http.StatusConflict},
	{vault.ErrVaultInsufficientBalance, http.StatusUnprocessableEntity},
	{vault.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{vault.ErrBalanceReadFailed, http.StatusBadGateway},
	{vault.ErrUpstreamUnavailable, http.StatusBadGateway},
	{vault.ErrTransactionUnconfirmed, http.StatusGatewayTimeout},
	{vault.ErrAuthorityNotInitialized, http.StatusInternalServerError},
}

func statusFromError(err error) int {
	for _, candidate := range errorStatuses {
		if errors.Is(err, candidate.err) {
			return candidate.status
		}
	}
	return http.StatusInternalServerError
}
