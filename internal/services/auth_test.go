package services

import (
	"testing"
	"time"

	"github.com/yungbote/labelbridge-backend/internal/domain"
)

func newAuthEnv(t *testing.T) (*testEnv, AuthService) {
	t.Helper()
	env := newTestEnv(t)
	auth := NewAuthService(env.log, env.userRepo, env.userTokenRepo, "test-secret", time.Minute, time.Hour)
	return env, auth
}

func TestAuthRegisterAndLogin(t *testing.T) {
	_, auth := newAuthEnv(t)

	t.Run("register validates input", func(t *testing.T) {
		_, err := auth.Register(testDBC(), RegisterInput{Email: "not-an-email", Password: "longenough"})
		assertErrorCode(t, err, "invalid_email")

		_, err = auth.Register(testDBC(), RegisterInput{Email: "a@b.com", Password: "short"})
		assertErrorCode(t, err, "weak_password")
	})

	t.Run("register lowercases email and defaults to annotator", func(t *testing.T) {
		user, err := auth.Register(testDBC(), RegisterInput{
			Email:    "  Casey@Example.COM ",
			Password: "hunter2hunter2",
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if user.Email != "casey@example.com" {
			t.Fatalf("email = %q, want lowercased trimmed", user.Email)
		}
		if user.Role != domain.RoleAnnotator {
			t.Fatalf("role = %q, want annotator", user.Role)
		}
		if user.Password == "hunter2hunter2" {
			t.Fatalf("password stored in plaintext")
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := auth.Register(testDBC(), RegisterInput{Email: "casey@example.com", Password: "hunter2hunter2"})
		assertErrorCode(t, err, "email_taken")
	})

	t.Run("login round-trips and the token parses", func(t *testing.T) {
		user, pair, err := auth.Login(testDBC(), "casey@example.com", "hunter2hunter2")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		claims, err := auth.ParseAccessToken(pair.AccessToken)
		if err != nil {
			t.Fatalf("ParseAccessToken: %v", err)
		}
		if claims.UserID != user.ID || claims.Role != user.Role {
			t.Fatalf("claims = %+v, want uid %s role %s", claims, user.ID, user.Role)
		}
	})

	t.Run("wrong password is rejected without leaking which part failed", func(t *testing.T) {
		_, _, err := auth.Login(testDBC(), "casey@example.com", "wrong-password")
		assertErrorCode(t, err, "invalid_credentials")

		_, _, err = auth.Login(testDBC(), "nobody@example.com", "hunter2hunter2")
		assertErrorCode(t, err, "invalid_credentials")
	})
}

func TestAuthRefreshRotation(t *testing.T) {
	_, auth := newAuthEnv(t)

	if _, err := auth.Register(testDBC(), RegisterInput{Email: "r@example.com", Password: "hunter2hunter2"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	user, pair, err := auth.Login(testDBC(), "r@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	fresh, err := auth.Refresh(testDBC(), user.ID, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if fresh.RefreshToken == pair.RefreshToken {
		t.Fatalf("refresh token not rotated")
	}

	// The old refresh token died with the rotation.
	if _, err := auth.Refresh(testDBC(), user.ID, pair.RefreshToken); err == nil {
		t.Fatalf("stale refresh token accepted")
	} else {
		assertErrorCode(t, err, "invalid_refresh_token")
	}

	t.Run("logout invalidates the current token too", func(t *testing.T) {
		if err := auth.Logout(testDBC(), user.ID); err != nil {
			t.Fatalf("Logout: %v", err)
		}
		_, err := auth.Refresh(testDBC(), user.ID, fresh.RefreshToken)
		assertErrorCode(t, err, "invalid_refresh_token")
	})
}

func TestParseAccessTokenRejectsForgeries(t *testing.T) {
	_, auth := newAuthEnv(t)

	_, err := auth.ParseAccessToken("not.a.token")
	assertErrorCode(t, err, "invalid_token")

	// Signed under a different secret.
	otherEnv := newTestEnv(t)
	other := NewAuthService(otherEnv.log, otherEnv.userRepo, otherEnv.userTokenRepo, "other-secret", time.Minute, time.Hour)
	if _, err := other.Register(testDBC(), RegisterInput{Email: "f@example.com", Password: "hunter2hunter2"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, pair, err := other.Login(testDBC(), "f@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, err = auth.ParseAccessToken(pair.AccessToken)
	assertErrorCode(t, err, "invalid_token")
}
