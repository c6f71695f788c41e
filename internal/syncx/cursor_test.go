package syncx

import (
	"encoding/base64"
	"testing"
)

func TestEncodeCursor(t *testing.T) {
	tests := []struct {
		name     string
		cursor   Cursor
		expected string
	}{
		{
			name:     "normal cursor",
			cursor:   Cursor{Ms: 1730635200000, Row: 42},
			expected: base64.RawURLEncoding.EncodeToString([]byte("1730635200000|42")),
		},
		{
			name:     "zero timestamp",
			cursor:   Cursor{Ms: 0, Row: 7},
			expected: base64.RawURLEncoding.EncodeToString([]byte("0|7")),
		},
		{
			name:     "zero value cursor",
			cursor:   Cursor{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeCursor(tt.cursor)
			if got != tt.expected {
				t.Errorf("EncodeCursor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDecodeCursor(t *testing.T) {
	tests := []struct {
		name      string
		encoded   string
		wantMs    int64
		wantRow   int64
		wantValid bool
	}{
		{
			name:      "valid cursor",
			encoded:   EncodeCursor(Cursor{Ms: 1730635200000, Row: 42}),
			wantMs:    1730635200000,
			wantRow:   42,
			wantValid: true,
		},
		{
			name:      "empty string",
			encoded:   "",
			wantValid: false,
		},
		{
			name:      "not base64",
			encoded:   "!!!not-base64!!!",
			wantValid: false,
		},
		{
			name:      "missing separator",
			encoded:   base64.RawURLEncoding.EncodeToString([]byte("1730635200000")),
			wantValid: false,
		},
		{
			name:      "non-numeric timestamp",
			encoded:   base64.RawURLEncoding.EncodeToString([]byte("abc|42")),
			wantValid: false,
		},
		{
			name:      "non-numeric row",
			encoded:   base64.RawURLEncoding.EncodeToString([]byte("1730635200000|xyz")),
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeCursor(tt.encoded)
			if ok != tt.wantValid {
				t.Fatalf("DecodeCursor() valid = %v, want %v", ok, tt.wantValid)
			}
			if !tt.wantValid {
				return
			}
			if got.Ms != tt.wantMs {
				t.Errorf("DecodeCursor() Ms = %v, want %v", got.Ms, tt.wantMs)
			}
			if got.Row != tt.wantRow {
				t.Errorf("DecodeCursor() Row = %v, want %v", got.Row, tt.wantRow)
			}
		})
	}
}

func TestCursorRoundTrip(t *testing.T) {
	orig := Cursor{Ms: NowMs(), Row: 9999999}
	decoded, ok := DecodeCursor(EncodeCursor(orig))
	if !ok {
		t.Fatal("round trip failed to decode")
	}
	if decoded != orig {
		t.Errorf("round trip = %+v, want %+v", decoded, orig)
	}
}
