package application_test

import (
	"fmt"
	"sync"
	"testing"

	"voice-phone/internal/application"
	"voice-phone/internal/domain"
)

func TestHistory_OrderAndNewest(t *testing.T) {
	h := application.NewHistory()

	for i := 0; i < 5; i++ {
		h.Append(domain.CommandRecord{Command: fmt.Sprintf("cmd %d", i)})
	}

	if h.Len() != 5 {
		t.Fatalf("len: got %d, want 5", h.Len())
	}

	records := h.Records()
	newest := h.Newest()
	for i := 0; i < 5; i++ {
		if want := fmt.Sprintf("cmd %d", i); records[i].Command != want {
			t.Errorf("records[%d]: got %q, want %q", i, records[i].Command, want)
		}
		if want := fmt.Sprintf("cmd %d", 4-i); newest[i].Command != want {
			t.Errorf("newest[%d]: got %q, want %q", i, newest[i].Command, want)
		}
	}
}

func TestHistory_CopiesAreDetached(t *testing.T) {
	h := application.NewHistory()
	h.Append(domain.CommandRecord{Command: "call john"})

	records := h.Records()
	records[0].Command = "changed"

	if got := h.Records()[0].Command; got != "call john" {
		t.Errorf("stored record was modified through a copy: %q", got)
	}
}

func TestHistory_ConcurrentReaders(t *testing.T) {
	h := application.NewHistory()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = h.Newest()
			}
		}()
	}
	for i := 0; i < 100; i++ {
		h.Append(domain.CommandRecord{Command: "weather"})
	}
	wg.Wait()

	if h.Len() != 100 {
		t.Errorf("len: got %d, want 100", h.Len())
	}
}
