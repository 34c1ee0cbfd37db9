// Package pagination provides keyset cursors for check history listings.
//
// Wallet checks are listed newest first on (checked_at, id). A cursor
// names the last row the client saw; the next page starts strictly
// after it, so inserts between requests never shift results.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cursor is a position in the check history.
type Cursor struct {
	CheckedAt time.Time
	ID        string
}

// Encode returns an opaque cursor string for the given row key.
func Encode(checkedAt time.Time, id string) string {
	raw := fmt.Sprintf("%d|%s", checkedAt.UnixNano(), id)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// Decode parses an opaque cursor string. Returns nil for empty input.
func Decode(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	return &Cursor{
		CheckedAt: time.Unix(0, nanos).UTC(),
		ID:        parts[1],
	}, nil
}

// ComputePage trims a limit+1 overfetch down to one page. When a row
// was trimmed it returns the cursor for the page's last row and
// has_more true; extractKey reads that row's (checked_at, id).
func ComputePage[T any](items []T, limit int, extractKey func(T) (time.Time, string)) ([]T, string, bool) {
	if len(items) <= limit {
		return items, "", false
	}
	items = items[:limit]
	last := items[len(items)-1]
	checkedAt, id := extractKey(last)
	return items, Encode(checkedAt, id), true
}
