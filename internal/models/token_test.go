package models

import (
	"testing"
	"time"
)

func TestAccessToken_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "not expired",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "already expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
		{
			name:      "zero time is expired",
			expiresAt: time.Time{},
			want:      true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &AccessToken{ExpiresAt: tt.expiresAt}
			if got := tok.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccessToken_IsRevoked(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		revokedAt *time.Time
		want      bool
	}{
		{name: "never revoked", revokedAt: nil, want: false},
		{name: "revoked", revokedAt: &now, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &AccessToken{RevokedAt: tt.revokedAt}
			if got := tok.IsRevoked(); got != tt.want {
				t.Errorf("IsRevoked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefreshToken_State(t *testing.T) {
	now := time.Now()
	tok := &RefreshToken{ExpiresAt: now.Add(time.Hour)}
	if tok.IsExpired() || tok.IsRevoked() {
		t.Fatalf("fresh refresh token reported expired=%v revoked=%v", tok.IsExpired(), tok.IsRevoked())
	}
	tok.RevokedAt = &now
	if !tok.IsRevoked() {
		t.Errorf("IsRevoked() = false after revocation")
	}
}

func TestAuthorizationCode_State(t *testing.T) {
	code := &AuthorizationCode{ExpiresAt: time.Now().Add(10 * time.Minute)}
	if code.IsExpired() {
		t.Errorf("IsExpired() = true for fresh code")
	}
	if code.IsUsed() {
		t.Errorf("IsUsed() = true for fresh code")
	}

	used := time.Now()
	code.UsedAt = &used
	code.ExpiresAt = time.Now().Add(-time.Second)
	if !code.IsUsed() || !code.IsExpired() {
		t.Errorf("expected consumed and expired code")
	}
}
