package identity

import "testing"

func newTestIdentity(allowed, admins []string) *Identity {
	return New(Config{JWTSecret: "this-is-a-long-enough-test-secret", AllowedIDs: allowed, AdminIDs: admins})
}

func TestCreateAndValidateToken(t *testing.T) {
	id := newTestIdentity(nil, nil)
	tok, err := id.CreateToken("alice")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	claims, err := id.ValidateToken(tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Sub != "alice" {
		t.Fatalf("expected subject alice, got %q", claims.Sub)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	id := newTestIdentity(nil, nil)
	tok, _ := id.CreateToken("alice")
	// Replace a full-width signature character (the last one carries unused
	// padding bits) with a different one, so the signature really changes.
	repl := "A"
	if tok[len(tok)-2] == 'A' {
		repl = "B"
	}
	tampered := tok[:len(tok)-2] + repl + tok[len(tok)-1:]
	if _, err := id.ValidateToken(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestAuthorizeEmptyAllowListAllowsAnyone(t *testing.T) {
	id := newTestIdentity(nil, nil)
	tok, _ := id.CreateToken("bob")
	user, err := id.Authorize(tok, "1.2.3.4:5555")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !user.CanQueue {
		t.Fatal("expected empty allow list to permit queueing")
	}
	if user.IsAdmin {
		t.Fatal("bob should not be admin")
	}
}

func TestAuthorizeRespectsAllowList(t *testing.T) {
	id := newTestIdentity([]string{"alice"}, []string{"alice"})

	tokAlice, _ := id.CreateToken("alice")
	userAlice, err := id.Authorize(tokAlice, "1.2.3.4:5555")
	if err != nil {
		t.Fatalf("Authorize(alice): %v", err)
	}
	if !userAlice.CanQueue || !userAlice.IsAdmin {
		t.Fatalf("expected alice allowed and admin, got %+v", userAlice)
	}

	tokBob, _ := id.CreateToken("bob")
	userBob, err := id.Authorize(tokBob, "1.2.3.5:5555")
	if err != nil {
		t.Fatalf("Authorize(bob): %v", err)
	}
	if userBob.CanQueue {
		t.Fatal("expected bob not on allow list to be denied queueing")
	}
}

func TestAuthorizeMissingToken(t *testing.T) {
	id := newTestIdentity(nil, nil)
	if _, err := id.Authorize("", "1.2.3.4:5555"); err != ErrMissingToken {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestAuthorizeRateLimitsRepeatedFailures(t *testing.T) {
	id := New(Config{JWTSecret: "this-is-a-long-enough-test-secret", MaxAttempts: 3, WindowSeconds: 60})
	for i := 0; i < 3; i++ {
		if _, err := id.Authorize("not-a-token", "9.9.9.9:1"); err == nil {
			t.Fatal("expected invalid token to fail")
		}
	}
	if _, err := id.Authorize("not-a-token", "9.9.9.9:1"); err != ErrRateLimited {
		t.Fatalf("expected ErrRateLimited after exceeding attempts, got %v", err)
	}
}
