package syncx

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cursor represents a resume position in the pull stream.
// Format: base64("<updated_at_ms>|<row_id>")
// The row id breaks ties between documents sharing a timestamp, so a
// cursor walk never skips or duplicates a document.
type Cursor struct {
	Ms  int64 // Unix milliseconds timestamp
	Row int64 // server-assigned row identifier
}

// EncodeCursor creates a base64-encoded cursor string.
// Returns empty string for the zero-value cursor.
func EncodeCursor(c Cursor) string {
	if c.Ms == 0 && c.Row == 0 {
		return ""
	}
	raw := fmt.Sprintf("%d|%d", c.Ms, c.Row)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor string.
// Returns zero-value cursor and false if invalid or empty.
func DecodeCursor(s string) (Cursor, bool) {
	if s == "" {
		return Cursor{}, false
	}

	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, false
	}

	parts := strings.Split(string(b), "|")
	if len(parts) != 2 {
		return Cursor{}, false
	}

	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Cursor{}, false
	}

	row, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Cursor{}, false
	}

	return Cursor{Ms: ms, Row: row}, true
}

// RFC3339 converts Unix milliseconds to an RFC3339 timestamp string
func RFC3339(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

// NowMs returns the current Unix milliseconds timestamp (UTC)
func NowMs() int64 {
	return time.Now().UTC().UnixMilli()
}
