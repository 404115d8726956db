package runtime

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/blockstore/internal/keys"
)

// Handler tokens authorize block callback requests without a session lookup:
// a truncated HMAC over (user, usage, time epoch). Epochs are two days long
// and the previous epoch stays valid, so a token lives at least two days and
// at most four.
const (
	tokenEpochLength = 48 * time.Hour
	tokenHexLen      = 20
)

func tokenForEpoch(secret []byte, userID uuid.UUID, usage keys.UsageKey, epoch int64) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s|%s|%d", userID, usage.String(), epoch)
	return hex.EncodeToString(mac.Sum(nil))[:tokenHexLen]
}

func epochAt(now time.Time) int64 {
	return now.Unix() / int64(tokenEpochLength/time.Second)
}

// MintToken issues the current-epoch token.
func MintToken(secret []byte, userID uuid.UUID, usage keys.UsageKey) string {
	return MintTokenAt(secret, userID, usage, time.Now())
}

func MintTokenAt(secret []byte, userID uuid.UUID, usage keys.UsageKey, now time.Time) string {
	return tokenForEpoch(secret, userID, usage, epochAt(now))
}

// ValidateToken accepts tokens from the current and the previous epoch.
// Comparison is constant-time.
func ValidateToken(secret []byte, token string, userID uuid.UUID, usage keys.UsageKey) bool {
	return ValidateTokenAt(secret, token, userID, usage, time.Now())
}

func ValidateTokenAt(secret []byte, token string, userID uuid.UUID, usage keys.UsageKey, now time.Time) bool {
	epoch := epochAt(now)
	for _, e := range []int64{epoch, epoch - 1} {
		if hmac.Equal([]byte(token), []byte(tokenForEpoch(secret, userID, usage, e))) {
			return true
		}
	}
	return false
}
