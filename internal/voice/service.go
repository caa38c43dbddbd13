// Package voice issues signed access tokens for a match's voice channel.
package voice

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

const (
	ActionLogin = "login"
	ActionJoin  = "join"
)

var (
	ErrIncompleteConfig  = errors.New("voice config is incomplete")
	ErrUserRequired      = errors.New("user is required")
	ErrChannelRequired   = errors.New("channel name is required for join tokens")
	ErrUnsupportedAction = errors.New("unsupported voice action")
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = time.Hour

// Service signs voice tokens with a shared secret.
type Service struct {
	secret string
	issuer string
	domain string
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret, issuer, domain string) *Service {
	return &Service{
		secret: secret,
		issuer: issuer,
		domain: domain,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
}

// Configured reports whether every credential is present.
func (s *Service) Configured() bool {
	return s != nil && s.secret != "" && s.issuer != "" && s.domain != ""
}

// ChannelForMatch names the voice channel shared by one match.
func ChannelForMatch(matchID string) string {
	return "snakes-" + matchID
}

// GenerateToken signs a login token for user, or a join token for channelName.
func (s *Service) GenerateToken(user, action, channelName string) (string, error) {
	if !s.Configured() {
		return "", ErrIncompleteConfig
	}
	if user == "" {
		return "", ErrUserRequired
	}

	userURI := s.userURI(user)
	targetURI, err := s.targetURI(action, channelName, userURI)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": user,
		"exp": now.Add(s.ttl).Unix(),
		"vxa": action,
		"vxi": fmt.Sprintf("%d-%d", now.UnixNano(), rand.Int63()),
		"f":   userURI,
		"t":   targetURI,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks a token's signature and expiry and returns its claims.
func (s *Service) Verify(tokenString string) (jwt.MapClaims, error) {
	if !s.Configured() {
		return nil, ErrIncompleteConfig
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid voice token")
	}
	return claims, nil
}

func (s *Service) userURI(user string) string {
	return "sip:." + s.issuer + "." + user + ".@" + s.domain
}

func (s *Service) channelURI(channelName string) string {
	return "sip:confctl-g-" + channelName + "@" + s.domain
}

func (s *Service) targetURI(action, channelName, userURI string) (string, error) {
	switch action {
	case ActionLogin:
		return userURI, nil
	case ActionJoin:
		if channelName == "" {
			return "", ErrChannelRequired
		}
		return s.channelURI(channelName), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAction, action)
	}
}
