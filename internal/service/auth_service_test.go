package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"schedulix/backend/internal/dto"
	"schedulix/backend/internal/tenant"
)

// memTokenStore stands in for the Redis blacklist.
type memTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{revoked: make(map[string]time.Duration)}
}

func (m *memTokenStore) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = ttl
	return nil
}

func (m *memTokenStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func setupTestAuthService(t *testing.T) (AuthService, *testEnv, *org, *memTokenStore) {
	env := newTestEnv(t)
	o := env.seedOrg(t, "north")
	tokens := newMemTokenStore()
	return NewAuthService(env.cfg, env.repo, env.jwtMgr, tokens, env.logger), env, o, tokens
}

// ── Login ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, env, o, _ := setupTestAuthService(t)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: " North-Doctor@Example.com ", Password: testPassword})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("token pair is empty")
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("unexpected expires_in %d", resp.ExpiresIn)
	}
	if resp.User.DoctorID == nil || *resp.User.DoctorID != o.doctorID {
		t.Errorf("doctor profile not attached: %+v", resp.User)
	}

	claims, err := env.jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.TenantID != o.tid.String() || claims.UserID != o.doctor.UserID || claims.TokenType != "access" {
		t.Errorf("unexpected claims %+v", claims)
	}

	u, _ := env.repo.User.GetByID(context.Background(), o.tid, o.doctor.UserID)
	if u.LastLoginAt == nil {
		t.Error("last login not recorded")
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	svc, env, o, _ := setupTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "north-admin@example.com", Password: "wrong-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: testPassword}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}

	env.store.users[o.patient.UserID].IsActive = false
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "north-patient@example.com", Password: testPassword}); !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("disabled: expected ErrAccountDisabled, got %v", err)
	}

	if err := env.repo.Tenant.UpdateStatus(ctx, o.tid, tenant.StatusSuspended); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "north-admin@example.com", Password: testPassword}); !errors.Is(err, tenant.ErrTenantInactive) {
		t.Errorf("suspended: expected ErrTenantInactive, got %v", err)
	}
}

// ── Refresh / Logout ──

func TestAuthService_Refresh_RotatesToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, &dto.LoginRequest{Email: "north-admin@example.com", Password: testPassword, RememberMe: true})
	if err != nil {
		t.Fatal(err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("reused refresh token: expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService(t)

	pair, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "north-admin@example.com", Password: testPassword})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("expected ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), "garbage"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestAuthService_Logout_RevokesBothTokens(t *testing.T) {
	svc, env, _, tokens := setupTestAuthService(t)
	ctx := context.Background()

	pair, err := svc.Login(ctx, &dto.LoginRequest{Email: "north-admin@example.com", Password: testPassword})
	if err != nil {
		t.Fatal(err)
	}
	access, err := env.jwtMgr.ParseToken(pair.AccessToken)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Logout(ctx, access, pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if revoked, _ := tokens.IsBlacklisted(ctx, access.ID); !revoked {
		t.Error("access token not revoked")
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("refresh after logout: expected ErrInvalidRefreshToken, got %v", err)
	}
}

// ── Me / ChangePassword ──

func TestAuthService_Me(t *testing.T) {
	svc, _, o, _ := setupTestAuthService(t)

	me, err := svc.Me(context.Background(), o.patient)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.PatientID == nil || *me.PatientID != o.patientID {
		t.Errorf("patient profile not attached: %+v", me)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc, env, o, _ := setupTestAuthService(t)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, o.admin, &dto.ChangePasswordRequest{OldPassword: "not-it", NewPassword: "new-password-1"})
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}

	if err := svc.ChangePassword(ctx, o.admin, &dto.ChangePasswordRequest{OldPassword: testPassword, NewPassword: "new-password-1"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	u, _ := env.repo.User.GetByID(ctx, o.tid, o.admin.UserID)
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("new-password-1")) != nil {
		t.Error("password hash was not updated")
	}
}
