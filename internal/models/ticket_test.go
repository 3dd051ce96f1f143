package models

import (
	"testing"
	"time"
)

func TestDateKeyUsesLocation(t *testing.T) {
	instant := time.Date(2026, 10, 20, 2, 30, 0, 0, time.UTC)
	if got := DateKey(instant, nil); got != "2026-10-20" {
		t.Fatalf("expected 2026-10-20, got %s", got)
	}
	bogota := time.FixedZone("COT", -5*60*60)
	if got := DateKey(instant, bogota); got != "2026-10-19" {
		t.Fatalf("expected 2026-10-19, got %s", got)
	}
}

func TestCompleted(t *testing.T) {
	now := time.Now()
	if (Ticket{}).Completed() {
		t.Fatalf("pending ticket reported completed")
	}
	if !(Ticket{CompletedAt: &now}).Completed() {
		t.Fatalf("completed ticket reported pending")
	}
}
