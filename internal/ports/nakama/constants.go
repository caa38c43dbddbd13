package nakama

import "time"

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a match with a free seat.
	RpcQuickMatch = "quick_match"

	// RpcVoiceToken issues a voice login or channel join token.
	RpcVoiceToken = "voice_token"

	// RpcPlayerRecord returns the caller's games and wins.
	RpcPlayerRecord = "player_record"

	// MatchNameSnakes is the authoritative match handler name registered with Nakama.
	MatchNameSnakes = "snakes_match"
)

// TickRate is the match loop frequency. AI think delays resolve to this granularity.
const TickRate = 10

const tickDuration = time.Second / TickRate

// Runtime env keys outside the game config.
const (
	EnvBotIdentitiesPath = "snakes_bot_identities_path"
	EnvVoiceSecret       = "snakes_voice_secret"
	EnvVoiceIssuer       = "snakes_voice_issuer"
	EnvVoiceDomain       = "snakes_voice_domain"
)

const defaultBotIdentitiesPath = "data/bot_identities.json"
