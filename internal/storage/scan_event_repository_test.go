package storage

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncatePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "short payload unchanged",
			payload: "ethereum:0x1234",
			want:    "ethereum:0x1234",
		},
		{
			name:    "exactly at cap unchanged",
			payload: strings.Repeat("a", maxStoredPayload),
			want:    strings.Repeat("a", maxStoredPayload),
		},
		{
			name:    "ascii overflow cut at cap",
			payload: strings.Repeat("a", maxStoredPayload+100),
			want:    strings.Repeat("a", maxStoredPayload),
		},
		{
			name:    "multibyte rune straddling the cap is dropped whole",
			payload: strings.Repeat("a", maxStoredPayload-1) + "€€",
			want:    strings.Repeat("a", maxStoredPayload-1),
		},
		{
			name:    "cap landing on a rune start keeps the full prefix",
			payload: strings.Repeat("a", maxStoredPayload) + "€",
			want:    strings.Repeat("a", maxStoredPayload),
		},
		{
			name:    "empty payload",
			payload: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncatePayload(tt.payload)
			if got != tt.want {
				t.Errorf("truncatePayload() = %q, want %q", got, tt.want)
			}
			if len(got) > maxStoredPayload {
				t.Errorf("truncated payload is %d bytes, cap is %d", len(got), maxStoredPayload)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncated payload is not valid UTF-8: %q", got)
			}
		})
	}
}

func TestTruncatePayload_MultibyteStaysValid(t *testing.T) {
	// CJK and emoji payloads are legitimate QR text; truncation must never
	// leave a dangling lead byte behind.
	payload := strings.Repeat("比特币钱包🚀", 40)
	if len(payload) <= maxStoredPayload {
		t.Fatalf("test payload must exceed the cap, got %d bytes", len(payload))
	}

	got := truncatePayload(payload)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated payload is not valid UTF-8")
	}
	if !strings.HasPrefix(payload, got) {
		t.Fatal("truncated payload must be a prefix of the original")
	}
	if len(got) > maxStoredPayload {
		t.Fatalf("truncated payload is %d bytes, cap is %d", len(got), maxStoredPayload)
	}
}
