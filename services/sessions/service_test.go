package sessions

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/spf13/afero"

	"heimdall/models"
)

const testDir = "/data"

var testAccount = models.Account{ID: "account-123", Username: "alice"}

// setupTestService creates a new sessions service backed by an in-memory filesystem.
func setupTestService(t *testing.T) (*Service, afero.Fs) {
	t.Helper()
	return setupTestServiceWithDuration(t, DefaultSessionDuration)
}

// setupTestServiceWithDuration creates a sessions service with a custom session duration.
func setupTestServiceWithDuration(t *testing.T, duration time.Duration) (*Service, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	svc, err := NewService(fs, testDir, duration)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc, fs
}

func TestNewService_DefaultDuration(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Hour} {
		svc, err := NewService(afero.NewMemMapFs(), testDir, d)
		if err != nil {
			t.Fatalf("NewService failed: %v", err)
		}
		if svc.Duration() != DefaultSessionDuration {
			t.Errorf("expected default duration %v, got %v", DefaultSessionDuration, svc.Duration())
		}
	}
}

func TestNewService_InMemoryOnly(t *testing.T) {
	svc, err := NewService(nil, "", DefaultSessionDuration)
	if err != nil {
		t.Fatalf("NewService with empty dir failed: %v", err)
	}
	if svc.file != nil {
		t.Error("expected no backing file for in-memory service")
	}
	if _, err := svc.Create(testAccount, "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestCreate_StoresSessionMetadata(t *testing.T) {
	svc, _ := setupTestService(t)

	before := time.Now().UTC()
	session, err := svc.Create(testAccount, "Mozilla/5.0", "192.168.1.1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	raw, err := base64.URLEncoding.DecodeString(session.Token)
	if err != nil || len(raw) != TokenLength {
		t.Errorf("expected %d byte url-safe token, got %q (%v)", TokenLength, session.Token, err)
	}
	if session.AccountID != "account-123" || session.Username != "alice" {
		t.Errorf("unexpected owner %+v", session)
	}
	if session.UserAgent != "Mozilla/5.0" || session.IPAddress != "192.168.1.1" {
		t.Errorf("unexpected client metadata %+v", session)
	}
	if session.ExpiresAt.Before(before.Add(DefaultSessionDuration - time.Minute)) {
		t.Errorf("expiry too early: %v", session.ExpiresAt)
	}
}

func TestCreate_UniqueTokens(t *testing.T) {
	svc, _ := setupTestService(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := svc.Create(testAccount, "", "")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[session.Token] {
			t.Fatal("duplicate token generated")
		}
		seen[session.Token] = true
	}
	if svc.Count() != 50 {
		t.Errorf("expected 50 sessions, got %d", svc.Count())
	}
}

func TestValidate(t *testing.T) {
	svc, _ := setupTestService(t)
	created, err := svc.Create(testAccount, "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := svc.Validate(created.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("expected alice, got %q", got.Username)
	}

	if _, err := svc.Validate("nonexistent"); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Validate(""); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	svc, _ := setupTestServiceWithDuration(t, time.Millisecond)
	session, err := svc.Create(testAccount, "", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := svc.Validate(session.Token); err != ErrSessionExpired {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
	if _, err := svc.Validate(session.Token); err != ErrSessionNotFound {
		t.Errorf("expired session should be dropped, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	svc, _ := setupTestService(t)
	session, _ := svc.Create(testAccount, "", "")

	if err := svc.Revoke(session.Token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := svc.Validate(session.Token); err != ErrSessionNotFound {
		t.Errorf("expected revoked session to be gone, got %v", err)
	}
	if err := svc.Revoke(session.Token); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound on second revoke, got %v", err)
	}
}

func TestRevokeAllForAccount_KeepsCurrent(t *testing.T) {
	svc, _ := setupTestService(t)
	keep, _ := svc.Create(testAccount, "", "")
	_, _ = svc.Create(testAccount, "", "")
	_, _ = svc.Create(testAccount, "", "")
	other, _ := svc.Create(models.Account{ID: "other", Username: "bob"}, "", "")

	if n := svc.RevokeAllForAccount(testAccount.ID, keep.Token); n != 2 {
		t.Errorf("expected 2 revoked, got %d", n)
	}
	if _, err := svc.Validate(keep.Token); err != nil {
		t.Errorf("kept session should remain valid: %v", err)
	}
	if _, err := svc.Validate(other.Token); err != nil {
		t.Errorf("other account's session should remain valid: %v", err)
	}
	if n := svc.RevokeAllForAccount("nobody", ""); n != 0 {
		t.Errorf("expected 0 revoked, got %d", n)
	}
}

func TestCleanup_RemovesExpiredSessions(t *testing.T) {
	svc, _ := setupTestServiceWithDuration(t, time.Millisecond)
	for i := 0; i < 3; i++ {
		_, _ = svc.Create(testAccount, "", "")
	}
	time.Sleep(5 * time.Millisecond)

	if n := svc.Cleanup(); n != 3 {
		t.Errorf("expected 3 removed, got %d", n)
	}
	if svc.Count() != 0 {
		t.Errorf("expected 0 sessions, got %d", svc.Count())
	}
}

func TestCleanup_KeepsValidSessions(t *testing.T) {
	svc, _ := setupTestService(t)
	_, _ = svc.Create(testAccount, "", "")

	if n := svc.Cleanup(); n != 0 {
		t.Errorf("expected 0 removed, got %d", n)
	}
	if svc.Count() != 1 {
		t.Errorf("expected 1 session, got %d", svc.Count())
	}
}

func TestStartCleanup_StopsWithContext(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	svc.StartCleanup(ctx)
	cancel()
}

func TestPersistence_LoadsExistingSessions(t *testing.T) {
	svc1, fs := setupTestService(t)
	session, err := svc1.Create(testAccount, "agent", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	svc2, err := NewService(fs, testDir, DefaultSessionDuration)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	got, err := svc2.Validate(session.Token)
	if err != nil {
		t.Fatalf("session should survive reload: %v", err)
	}
	if got.UserAgent != "agent" || got.Username != "alice" {
		t.Errorf("unexpected reloaded session %+v", got)
	}
}

func TestPersistence_DoesNotLoadExpired(t *testing.T) {
	svc1, fs := setupTestServiceWithDuration(t, time.Millisecond)
	_, _ = svc1.Create(testAccount, "", "")
	time.Sleep(5 * time.Millisecond)

	svc2, err := NewService(fs, testDir, DefaultSessionDuration)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if svc2.Count() != 0 {
		t.Errorf("expected expired sessions to be skipped, got %d", svc2.Count())
	}
}
