package audit

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// computeHash computes a SHA-256 hash for chain integrity.
func computeHash(prevHash, id, eventType, userID string, timestamp time.Time, contentJSON []byte) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d|%s", prevHash, id, eventType, userID, timestamp.UnixNano(), string(contentJSON))
	h := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", h)
}

// chainLockKey names the Postgres advisory lock that serializes appends.
const chainLockKey int64 = 0x7461736b74616c6b

// nextTimestamp stamps a new event strictly after the chain head, at the
// store's resolution, so timestamp order always equals chain order.
func nextTimestamp(now, head time.Time, resolution time.Duration) time.Time {
	now = now.UTC().Truncate(resolution)
	if !head.IsZero() && !now.After(head) {
		return head.UTC().Add(resolution)
	}
	return now
}

// checkLink verifies one event against the hash of the event before it.
// raw is the content as stored; JSONB storage may reorder keys, so a
// re-marshaled form is also accepted.
func checkLink(i int, prevHash string, e *Event, raw []byte) error {
	if e.PrevHash != prevHash {
		return fmt.Errorf("event %d (%s): prev_hash mismatch: got %s, want %s", i, e.ID, e.PrevHash, prevHash)
	}
	remarshaled, _ := json.Marshal(e.Content)
	expected := computeHash(prevHash, e.ID, e.Type, e.UserID, e.Timestamp, remarshaled)
	if e.Hash == expected {
		return nil
	}
	expectedRaw := computeHash(prevHash, e.ID, e.Type, e.UserID, e.Timestamp, raw)
	if e.Hash != expectedRaw {
		return fmt.Errorf("event %d (%s): hash mismatch: got %s, want remarshal=%s or raw=%s", i, e.ID, e.Hash, expected, expectedRaw)
	}
	return nil
}

func decodeContent(raw []byte) map[string]any {
	var content map[string]any
	if err := json.Unmarshal(raw, &content); err != nil || content == nil {
		return map[string]any{"_raw": string(raw)}
	}
	return content
}
