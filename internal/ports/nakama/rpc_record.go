package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"snakesladders/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// PlayerRecordResponse is returned by the player_record RPC.
type PlayerRecordResponse struct {
	Games int64 `json:"games"`
	Wins  int64 `json:"wins"`
}

func rpcPlayerRecord(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return playerRecord(ctx, logger, NewNakamaResultsAdapter(nk))
}

func playerRecord(ctx context.Context, logger runtime.Logger, results ports.ResultsPort) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", 16)
	}

	record, err := results.GetRecord(ctx, userID)
	if err != nil {
		logger.Error("PlayerRecord: %v", err)
		return "", runtime.NewError("failed to read record", 13)
	}

	b, err := json.Marshal(PlayerRecordResponse{Games: record.Games, Wins: record.Wins})
	if err != nil {
		return "", runtime.NewError("failed to encode response", 13)
	}
	return string(b), nil
}
