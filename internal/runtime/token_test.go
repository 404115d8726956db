package runtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/blockstore/internal/keys"
)

func tokenFixture() ([]byte, uuid.UUID, keys.UsageKey, time.Time) {
	secret := []byte("token-secret")
	user := uuid.MustParse("1a6c5f29-1d0e-4c76-9cb6-6cf63a4c59c3")
	usage := keys.MakeUsageKey(keys.MakeCourseKey("EDX", "TOK", "2024"), "problem", "p1")
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return secret, user, usage, now
}

func TestTokenShapeAndDeterminism(t *testing.T) {
	secret, user, usage, now := tokenFixture()

	tok := MintTokenAt(secret, user, usage, now)
	if len(tok) != tokenHexLen {
		t.Fatalf("token length = %d", len(tok))
	}
	if tok != MintTokenAt(secret, user, usage, now.Add(time.Hour)) {
		t.Fatalf("token changed within one epoch")
	}
	if tok == MintTokenAt(secret, user, usage, now.Add(tokenEpochLength)) {
		t.Fatalf("token identical across epochs")
	}
}

func TestTokenGraceWindow(t *testing.T) {
	secret, user, usage, now := tokenFixture()
	tok := MintTokenAt(secret, user, usage, now)

	if !ValidateTokenAt(secret, tok, user, usage, now) {
		t.Fatalf("current-epoch token rejected")
	}
	if !ValidateTokenAt(secret, tok, user, usage, now.Add(tokenEpochLength)) {
		t.Fatalf("previous-epoch token should stay valid")
	}
	if ValidateTokenAt(secret, tok, user, usage, now.Add(2*tokenEpochLength)) {
		t.Fatalf("token accepted two epochs later")
	}
}

func TestTokenBindsUserAndUsage(t *testing.T) {
	secret, user, usage, now := tokenFixture()
	tok := MintTokenAt(secret, user, usage, now)

	if ValidateTokenAt(secret, tok, uuid.New(), usage, now) {
		t.Fatalf("token valid for a different user")
	}
	otherUsage := keys.MakeUsageKey(usage.Course, "problem", "p2")
	if ValidateTokenAt(secret, tok, user, otherUsage, now) {
		t.Fatalf("token valid for a different usage")
	}
	if ValidateTokenAt([]byte("wrong-secret"), tok, user, usage, now) {
		t.Fatalf("token valid under a different secret")
	}
	tampered := "f" + tok[1:]
	if tampered != tok && ValidateTokenAt(secret, tampered, user, usage, now) {
		t.Fatalf("tampered token accepted")
	}
}
