package voice

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

func TestGenerateLoginToken(t *testing.T) {
	svc := NewService("test-secret", "issuer", "example.com")
	tokenString, err := svc.GenerateToken("user123", ActionLogin, "")
	if err != nil {
		t.Fatalf("generate login token error: %v", err)
	}

	claims, err := svc.Verify(tokenString)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	userURI := "sip:.issuer.user123.@example.com"

	if got := stringClaim(t, claims, "vxa"); got != ActionLogin {
		t.Fatalf("vxa = %s, want %s", got, ActionLogin)
	}
	if got := stringClaim(t, claims, "f"); got != userURI {
		t.Fatalf("f = %s, want %s", got, userURI)
	}
	if got := stringClaim(t, claims, "t"); got != userURI {
		t.Fatalf("t = %s, want %s", got, userURI)
	}
	if got := stringClaim(t, claims, "sub"); got != "user123" {
		t.Fatalf("sub = %s, want user123", got)
	}
}

func TestGenerateJoinToken(t *testing.T) {
	svc := NewService("test-secret", "issuer", "example.com")
	channel := ChannelForMatch("m-456")
	tokenString, err := svc.GenerateToken("user123", ActionJoin, channel)
	if err != nil {
		t.Fatalf("generate join token error: %v", err)
	}

	claims, err := svc.Verify(tokenString)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	want := fmt.Sprintf("sip:confctl-g-%s@example.com", channel)
	if got := stringClaim(t, claims, "t"); got != want {
		t.Fatalf("t = %s, want %s", got, want)
	}
}

func TestTokensAreUnique(t *testing.T) {
	svc := NewService("test-secret", "issuer", "example.com")
	a, _ := svc.GenerateToken("u", ActionLogin, "")
	b, _ := svc.GenerateToken("u", ActionLogin, "")
	ca, _ := svc.Verify(a)
	cb, _ := svc.Verify(b)
	if ca["vxi"] == cb["vxi"] {
		t.Fatalf("vxi must differ between tokens, got %v twice", ca["vxi"])
	}
}

func TestGenerateTokenErrors(t *testing.T) {
	tests := []struct {
		name    string
		svc     *Service
		user    string
		action  string
		channel string
		want    error
	}{
		{name: "missing secret", svc: NewService("", "issuer", "example.com"), user: "u", action: ActionLogin, want: ErrIncompleteConfig},
		{name: "nil service", svc: nil, user: "u", action: ActionLogin, want: ErrIncompleteConfig},
		{name: "missing user", svc: NewService("s", "issuer", "example.com"), action: ActionLogin, want: ErrUserRequired},
		{name: "join without channel", svc: NewService("s", "issuer", "example.com"), user: "u", action: ActionJoin, want: ErrChannelRequired},
		{name: "unknown action", svc: NewService("s", "issuer", "example.com"), user: "u", action: "shout", want: ErrUnsupportedAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.GenerateToken(tt.user, tt.action, tt.channel)
			if !errors.Is(err, tt.want) {
				t.Fatalf("GenerateToken() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	svc := NewService("test-secret", "issuer", "example.com")
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.GenerateToken("u", ActionLogin, "")
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if _, err := svc.Verify(expired); err == nil {
		t.Fatalf("expected expired token to fail verification")
	}

	other := NewService("other-secret", "issuer", "example.com")
	foreign, _ := other.GenerateToken("u", ActionLogin, "")
	svc.now = time.Now
	if _, err := svc.Verify(foreign); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}
}

func stringClaim(t *testing.T, claims jwt.MapClaims, name string) string {
	t.Helper()
	value, ok := claims[name]
	if !ok {
		t.Fatalf("missing %s claim", name)
	}
	str, ok := value.(string)
	if !ok {
		t.Fatalf("%s claim is not a string", name)
	}
	return str
}
