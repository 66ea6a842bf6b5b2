package system

import (
	"testing"
	"time"
)

func TestClockDefaultsToUTC(t *testing.T) {
	t.Parallel()

	if got := New(nil).Now().Location(); got != time.UTC {
		t.Fatalf("expected UTC, got %v", got)
	}
	var zero Clock
	if got := zero.Now().Location(); got != time.UTC {
		t.Fatalf("expected zero Clock to report UTC, got %v", got)
	}
}

func TestClockJST(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	got := New(JST).Now()
	after := time.Now().Add(time.Second)

	if got.Location() != JST {
		t.Fatalf("expected JST location, got %v", got.Location())
	}
	if _, offset := got.Zone(); offset != 9*60*60 {
		t.Fatalf("expected +09:00 offset, got %d", offset)
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}
