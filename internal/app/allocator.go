package app

import (
	"fmt"

	"code.hybscloud.com/atomix"

	"github.com/bft-labs/hostlink/internal/domain"
)

// Default transfer id bounds, [MinTransferID, MaxTransferID).
const (
	MinTransferID = 1
	MaxTransferID = 65535
)

// Allocator hands out transfer ids in [min, max). The counter starts at 0
// and increments on every call; reaching max wraps it back to min, so 0 is
// never emitted. A counter below min (first calls with min > 1) jumps to min.
//
// Allocation is atomic, but an id is recycled after max-min calls whether or
// not its reply has arrived. Callers keeping more than max-min requests
// outstanding will see collisions; the client detects and logs them.
type Allocator struct {
	counter atomix.Uint32
	min     uint32
	max     uint32
}

// NewAllocator creates an allocator for the half-open range [min, max).
func NewAllocator(min, max uint32) (*Allocator, error) {
	if min == 0 {
		return nil, fmt.Errorf("%w: transfer id 0 is reserved", domain.ErrInvalidConfig)
	}
	if max <= min || max > MaxTransferID+1 {
		return nil, fmt.Errorf("%w: transfer id range [%d, %d)", domain.ErrInvalidConfig, min, max)
	}
	return &Allocator{min: min, max: max}, nil
}

// Next returns the next transfer id.
//
// The counter is only touched through CompareExchange, so every access is a
// locked read-modify-write. A failed exchange hands back the current value
// for the next attempt.
func (a *Allocator) Next() domain.TransferID {
	var cur uint32
	for {
		next := cur + 1
		if next >= a.max || next < a.min {
			next = a.min
		}
		prev := a.counter.CompareExchange(cur, next)
		if prev == cur {
			return domain.TransferID(next)
		}
		cur = prev
	}
}

// Span returns how many distinct ids the allocator cycles through.
func (a *Allocator) Span() int {
	return int(a.max - a.min)
}
