package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/scan-gateway/internal/quota"
)

func TestScanQuotaMiddleware_Enforcement(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	tracker, err := quota.NewTracker(&quota.TrackerConfig{
		Redis:         redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		FreeTierScans: 2,
		PaidTierScans: 10,
		Window:        time.Minute,
	})
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	server := NewServer(&ServerConfig{
		Host:            "localhost",
		Port:            "8080",
		FreeTierRPS:     100,
		PaidTierRPS:     100,
		HistoryPageSize: 50,
	}, &mockScanService{}, &mockDraftStore{}, &mockScanHistory{}, tracker)

	body := map[string]string{"sessionId": "s1", "payload": testAddr}

	for i := 0; i < 2; i++ {
		w := doJSON(t, server, "POST", "/api/scan", body)
		if w.Code != http.StatusOK {
			t.Fatalf("scan %d: expected 200, got %d", i+1, w.Code)
		}
		if w.Header().Get("X-Scan-Quota-Remaining") == "" {
			t.Error("expected quota remaining header on allowed scans")
		}
	}

	w := doJSON(t, server, "POST", "/api/scan", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once quota is spent, got %d", w.Code)
	}

	// Classification is not quota-gated.
	w = doJSON(t, server, "POST", "/api/classify", map[string]string{"payload": testAddr})
	if w.Code != http.StatusOK {
		t.Errorf("classify after quota exhaustion: expected 200, got %d", w.Code)
	}
}
