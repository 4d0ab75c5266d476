package broker

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quantpaper/internal/market"
)

func TestJSONLRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "orders.jsonl")
	rec, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder returned error: %v", err)
	}

	orders := []market.Order{
		{Symbol: "600000", Side: market.Buy, Qty: 100, Price: 10.5, Status: market.OrderFilled, Ts: time.Now().UTC()},
		{Symbol: "600000", Side: market.Sell, Status: market.OrderRejected, Reason: "no_position", Ts: time.Now().UTC()},
	}
	for _, o := range orders {
		rec.Record(o)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second Close must be a no-op, got %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var got []market.Order
	for scanner.Scan() {
		var o market.Order
		if err := json.Unmarshal(scanner.Bytes(), &o); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		got = append(got, o)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if got[0].Qty != 100 || got[1].Reason != "no_position" {
		t.Fatalf("unexpected content: %+v", got)
	}
}
