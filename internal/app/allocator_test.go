package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/bft-labs/hostlink/internal/domain"
)

func TestAllocator_DefaultRangeWraps(t *testing.T) {
	a, err := NewAllocator(MinTransferID, MaxTransferID)
	if err != nil {
		t.Fatalf("NewAllocator() error = %v", err)
	}

	for want := 1; want <= 65534; want++ {
		got := a.Next()
		if int(got) != want {
			t.Fatalf("call %d: Next() = %d, want %d", want, got, want)
		}
	}
	if got := a.Next(); got != 1 {
		t.Errorf("Next() after 65534 calls = %d, want 1", got)
	}
}

func TestAllocator_CustomRange(t *testing.T) {
	a, err := NewAllocator(10, 13)
	if err != nil {
		t.Fatalf("NewAllocator() error = %v", err)
	}

	want := []domain.TransferID{10, 11, 12, 10, 11}
	for i, w := range want {
		if got := a.Next(); got != w {
			t.Errorf("call %d: Next() = %d, want %d", i, got, w)
		}
	}
	if a.Span() != 3 {
		t.Errorf("Span() = %d, want 3", a.Span())
	}
}

func TestNewAllocator_InvalidRange(t *testing.T) {
	tests := []struct {
		name     string
		min, max uint32
	}{
		{"zero min", 0, 100},
		{"empty range", 5, 5},
		{"inverted", 10, 5},
		{"beyond 16 bits", 1, 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAllocator(tt.min, tt.max)
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("NewAllocator(%d, %d) error = %v, want ErrInvalidConfig", tt.min, tt.max, err)
			}
		})
	}
}

func TestAllocator_FullSixteenBitRange(t *testing.T) {
	a, err := NewAllocator(1, 65536)
	if err != nil {
		t.Fatalf("NewAllocator() error = %v", err)
	}
	for i := 0; i < 65535; i++ {
		a.Next()
	}
	if got := a.Next(); got != 1 {
		t.Errorf("Next() after a full cycle = %d, want 1", got)
	}
}

func TestAllocator_ConcurrentUnique(t *testing.T) {
	a, _ := NewAllocator(MinTransferID, MaxTransferID)

	const workers, each = 32, 1000
	var (
		mu   sync.Mutex
		seen = make(map[domain.TransferID]bool, workers*each)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]domain.TransferID, 0, each)
			for i := 0; i < each; i++ {
				ids = append(ids, a.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				if id == 0 {
					t.Error("allocated reserved id 0")
				}
				if seen[id] {
					t.Errorf("id %d allocated twice", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*each {
		t.Errorf("got %d distinct ids, want %d", len(seen), workers*each)
	}
}
