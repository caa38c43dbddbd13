package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"snakesladders/internal/voice"

	"github.com/heroiclabs/nakama-common/runtime"
)

// VoiceTokenRequest is the voice_token RPC payload. MatchID is required for join.
type VoiceTokenRequest struct {
	Action  string `json:"action"`
	MatchID string `json:"match_id"`
}

type VoiceTokenResponse struct {
	Token   string `json:"token"`
	Channel string `json:"channel,omitempty"`
}

// voiceServiceFromEnv builds the token signer from runtime env.
func voiceServiceFromEnv(ctx context.Context) *voice.Service {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	return voice.NewService(env[EnvVoiceSecret], env[EnvVoiceIssuer], env[EnvVoiceDomain])
}

func rpcVoiceToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("authentication required", 16)
	}

	req := VoiceTokenRequest{Action: voice.ActionLogin}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid payload", 3)
		}
	}

	channel := ""
	if req.Action == voice.ActionJoin && req.MatchID != "" {
		channel = voice.ChannelForMatch(req.MatchID)
	}

	token, err := voiceServiceFromEnv(ctx).GenerateToken(userID, req.Action, channel)
	switch {
	case errors.Is(err, voice.ErrIncompleteConfig):
		logger.Error("VoiceToken: voice is not configured")
		return "", runtime.NewError("voice is not configured", 9)
	case errors.Is(err, voice.ErrChannelRequired), errors.Is(err, voice.ErrUnsupportedAction):
		return "", runtime.NewError(err.Error(), 3)
	case err != nil:
		logger.Error("VoiceToken: Failed to sign token for %s: %v", userID, err)
		return "", runtime.NewError("failed to sign token", 13)
	}

	b, err := json.Marshal(VoiceTokenResponse{Token: token, Channel: channel})
	if err != nil {
		return "", runtime.NewError("failed to encode response", 13)
	}
	return string(b), nil
}
