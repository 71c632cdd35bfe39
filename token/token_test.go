package token

import (
	"testing"
	"time"
)

func TestIssueAndVerifyAccess(t *testing.T) {
	codec := NewCodec("test-secret", 15*time.Minute, 7*24*time.Hour)

	before := time.Now()
	signed, expiresAt, err := codec.IssueAccess("user-1", "a@example.com", "user")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if expiresAt.Before(before.Add(15*time.Minute)) || expiresAt.After(time.Now().Add(15*time.Minute).Add(time.Second)) {
		t.Errorf("expiresAt %v not within expected window", expiresAt)
	}

	claims, ok := codec.Verify(signed)
	if !ok {
		t.Fatal("Verify rejected a freshly issued token")
	}
	if claims.UserID != "user-1" || claims.Email != "a@example.com" || claims.Role != "user" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Type != TypeAccess {
		t.Errorf("access token carries type %q", claims.Type)
	}
}

func TestIssueRefreshType(t *testing.T) {
	codec := NewCodec("test-secret", 15*time.Minute, 7*24*time.Hour)

	signed, _, err := codec.IssueRefresh("user-1", "a@example.com", "user")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	claims, ok := codec.Verify(signed)
	if !ok {
		t.Fatal("Verify rejected a freshly issued refresh token")
	}
	if claims.Type != TypeRefresh {
		t.Errorf("refresh token carries type %q", claims.Type)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewCodec("secret-a", time.Minute, time.Hour)
	verifier := NewCodec("secret-b", time.Minute, time.Hour)

	signed, _, err := issuer.IssueAccess("user-1", "a@example.com", "user")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if _, ok := verifier.Verify(signed); ok {
		t.Error("token signed with a different secret verified")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	codec := NewCodec("test-secret", -time.Minute, -time.Minute)

	signed, _, err := codec.IssueAccess("user-1", "a@example.com", "user")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if _, ok := codec.Verify(signed); ok {
		t.Error("expired token verified")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	codec := NewCodec("test-secret", time.Minute, time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, ok := codec.Verify(tok); ok {
			t.Errorf("malformed token %q verified", tok)
		}
	}
}

func TestAccessAndRefreshNeverEqual(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour, time.Hour)

	access, _, err := codec.IssueAccess("user-1", "a@example.com", "user")
	if err != nil {
		t.Fatal(err)
	}
	refresh, _, err := codec.IssueRefresh("user-1", "a@example.com", "user")
	if err != nil {
		t.Fatal(err)
	}
	if access == refresh {
		t.Error("access and refresh tokens are identical")
	}
}

func TestSuccessiveTokensUnique(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour, time.Hour)

	// issued within the same second, must still differ so rotation can
	// tell old from new
	first, _, err := codec.IssueRefresh("user-1", "a@example.com", "user")
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := codec.IssueRefresh("user-1", "a@example.com", "user")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("two refresh tokens issued back to back are identical")
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30s", want: 30 * time.Second},
		{in: "15m", want: 15 * time.Minute},
		{in: "24h", want: 24 * time.Hour},
		{in: "7d", want: 7 * 24 * time.Hour},
		{in: "2w", want: 14 * 24 * time.Hour},
		{in: " 1d ", want: 24 * time.Hour},
		{in: "", wantErr: true},
		{in: "10x", wantErr: true},
		{in: "h", wantErr: true},
		{in: "-5m", wantErr: true},
		{in: "1.5h", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseWindow(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseWindow(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseWindow(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWindow(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
