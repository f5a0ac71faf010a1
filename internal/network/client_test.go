package network

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/BeerClicker/server/internal/domain/tournament"
	"github.com/MRamiBalles/BeerClicker/server/internal/engine"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
)

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{&economy.InsufficientFundsError{Cost: 10}, "insufficient_funds", http.StatusPaymentRequired},
		{&economy.CooldownError{}, "cooldown_active", http.StatusTooManyRequests},
		{economy.ErrUnknownUpgrade, "unknown_upgrade", http.StatusNotFound},
		{fmt.Errorf("buy tap: %w", economy.ErrUpgradeMaxed), "upgrade_maxed", http.StatusConflict},
		{tournament.ErrNoAttempts, "no_attempts", http.StatusPaymentRequired},
		{storage.ErrPlayerNotFound, "player_not_found", http.StatusNotFound},
		{tournament.ErrUnknownPack, "unknown_pack", http.StatusNotFound},
		{tournament.ErrNotAdmin, "not_admin", http.StatusForbidden},
		{tournament.ErrInvalidGrant, "invalid", http.StatusBadRequest},
		{engine.ErrEngineStopped, "engine_stopped", http.StatusServiceUnavailable},
		{errors.New("boom"), "internal", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, status := errorCode(tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}
