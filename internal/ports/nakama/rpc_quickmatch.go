package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"snakesladders/internal/domain"
	"snakesladders/internal/wire"

	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickMatchResponse is the payload returned to clients when requesting a match with a free seat.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// quickMatchQuery finds open snakes matches. Running games accept late joiners,
// so the phase is not filtered.
var quickMatchQuery = fmt.Sprintf("+label.open:T +label.game:%s", wire.GameName)

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcVoiceToken, rpcVoiceToken); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcPlayerRecord, rpcPlayerRecord)
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	limit := 10
	authoritative := true

	minSize := 1
	maxSize := domain.MaxPlayers - 1

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, quickMatchQuery)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", runtime.NewError("failed to list matches", 13)
	}

	if len(matches) > 0 {
		return marshalQuickMatch(QuickMatchResponse{MatchID: matches[0].GetMatchId(), IsNew: false})
	}

	// Index assignment happens in MatchJoin.
	matchID, err := nk.MatchCreate(ctx, MatchNameSnakes, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", runtime.NewError("failed to create match", 13)
	}

	return marshalQuickMatch(QuickMatchResponse{MatchID: matchID, IsNew: true})
}

func marshalQuickMatch(resp QuickMatchResponse) (string, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return "", runtime.NewError("failed to encode response", 13)
	}
	return string(b), nil
}
