package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"snakesladders/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
)

// Wallet keys holding the lifetime tally.
const (
	WalletKeyGames = "games"
	WalletKeyWins  = "wins"
)

// walletStore is the slice of runtime.NakamaModule the results adapter needs.
type walletStore interface {
	AccountGetId(ctx context.Context, userID string) (*api.Account, error)
	WalletUpdate(ctx context.Context, userID string, changeset map[string]int64, metadata map[string]interface{}, updateLedger bool) (map[string]int64, map[string]int64, error)
}

// NakamaResultsAdapter implements ports.ResultsPort on top of Nakama wallets.
type NakamaResultsAdapter struct {
	nk walletStore
}

func NewNakamaResultsAdapter(nk walletStore) *NakamaResultsAdapter {
	return &NakamaResultsAdapter{nk: nk}
}

// RecordResult applies one wallet update per player. The first failure stops
// the loop so a retry does not double count earlier players.
func (a *NakamaResultsAdapter) RecordResult(ctx context.Context, result ports.GameResult) error {
	metadata := map[string]interface{}{
		"match_id": result.MatchID,
		"reason":   "game_result",
	}
	for _, userID := range result.PlayerUserIDs {
		changes := map[string]int64{WalletKeyGames: 1}
		if userID == result.WinnerUserID {
			changes[WalletKeyWins] = 1
		}
		if _, _, err := a.nk.WalletUpdate(ctx, userID, changes, metadata, true); err != nil {
			return fmt.Errorf("failed to update wallet for user %s: %w", userID, err)
		}
	}
	return nil
}

func (a *NakamaResultsAdapter) GetRecord(ctx context.Context, userID string) (ports.Record, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return ports.Record{}, fmt.Errorf("failed to get account: %w", err)
	}
	if account.GetWallet() == "" {
		return ports.Record{}, nil
	}

	var wallet map[string]int64
	if err := json.Unmarshal([]byte(account.GetWallet()), &wallet); err != nil {
		return ports.Record{}, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}
	return ports.Record{Games: wallet[WalletKeyGames], Wins: wallet[WalletKeyWins]}, nil
}

var _ ports.ResultsPort = (*NakamaResultsAdapter)(nil)
