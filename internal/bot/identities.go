package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/heroiclabs/nakama-common/runtime"
)

type Identity struct {
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"` // "easy", "medium", "hard"
	AvatarIndex int    `json:"avatar_index"`
}

// Name returns the display name, falling back to the username.
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Username
}

// Pool holds the AI identities a session may draw from. It is passed to
// sessions explicitly rather than living in package state.
type Pool struct {
	identities []Identity
	byUserID   map[string]Identity
}

// NewPool indexes the given identities.
func NewPool(identities []Identity) *Pool {
	p := &Pool{identities: append([]Identity(nil), identities...)}
	p.reindex()
	return p
}

// DefaultPool is used when no identity file is configured.
func DefaultPool() *Pool {
	return NewPool([]Identity{
		{UserID: "bot-ada", Username: "ada", DisplayName: "Ada", Difficulty: "medium"},
		{UserID: "bot-basil", Username: "basil", DisplayName: "Basil", Difficulty: "easy", AvatarIndex: 1},
		{UserID: "bot-cleo", Username: "cleo", DisplayName: "Cleo", Difficulty: "hard", AvatarIndex: 2},
		{UserID: "bot-dario", Username: "dario", DisplayName: "Dario", Difficulty: "medium", AvatarIndex: 3},
	})
}

// LoadPool reads bot profiles from a JSON array on disk.
func LoadPool(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot identities: %w", err)
	}
	var identities []Identity
	if err := json.Unmarshal(data, &identities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot identities: %w", err)
	}
	return NewPool(identities), nil
}

func (p *Pool) reindex() {
	p.byUserID = make(map[string]Identity, len(p.identities))
	for _, identity := range p.identities {
		if identity.UserID != "" {
			p.byUserID[identity.UserID] = identity
		}
	}
}

// Len reports the number of identities in the pool.
func (p *Pool) Len() int {
	return len(p.identities)
}

// Identity returns an identity by index (mod pool size). An empty pool yields
// a generated identity.
func (p *Pool) Identity(index int) Identity {
	if len(p.identities) == 0 {
		return Identity{
			UserID:      fmt.Sprintf("bot-%d", index),
			DisplayName: fmt.Sprintf("AI Player %d", index),
		}
	}
	identity := p.identities[index%len(p.identities)]
	if identity.UserID == "" {
		identity.UserID = fmt.Sprintf("bot-%d", index)
	}
	return identity
}

// Lookup returns the identity registered for userID.
func (p *Pool) Lookup(userID string) (Identity, bool) {
	identity, ok := p.byUserID[userID]
	return identity, ok
}

// IsBot reports whether userID belongs to the pool.
func (p *Pool) IsBot(userID string) bool {
	_, ok := p.byUserID[userID]
	return ok
}

// Provision ensures every identity with a device ID has a Nakama account tagged
// with is_bot metadata, and records the resulting user IDs.
func (p *Pool) Provision(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) {
	for i := range p.identities {
		identity := &p.identities[i]
		if identity.DeviceID == "" {
			continue
		}

		userID, username, _, err := nk.AuthenticateDevice(ctx, identity.DeviceID, identity.Username, true)
		if err != nil {
			logger.Error("ProvisionBots: Failed to authenticate bot %s: %v", identity.Username, err)
			continue
		}
		identity.UserID = userID
		identity.Username = username

		metadata := map[string]interface{}{
			"is_bot":       true,
			"difficulty":   identity.Difficulty,
			"avatar_index": identity.AvatarIndex,
		}
		if err := nk.AccountUpdateId(ctx, userID, identity.Username, metadata, identity.DisplayName, "", "", "", ""); err != nil {
			logger.Warn("ProvisionBots: Failed to update bot account %s: %v", userID, err)
		}

		logger.Info("ProvisionBots: Bot %s (%s) is ready. Difficulty: %s", identity.Name(), userID, identity.Difficulty)
	}
	p.reindex()
}
