// Package store keeps the finalized beacon headers the relayer proves against.
package store

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/kysee/forcerelay/mmr"
	"github.com/kysee/forcerelay/types"
)

var ErrNotContiguous = errors.New("header is not contiguous with the store tip")

var _ ConsensusStore = (*MemoryStore)(nil)

// MemoryStore holds a contiguous run of headers starting at a base slot.
// It is safe for concurrent readers and one appender.
type MemoryStore struct {
	mu      sync.RWMutex
	headers []types.Header
}

func NewMemoryStore(headers ...types.Header) (*MemoryStore, error) {
	s := &MemoryStore{}
	for _, h := range headers {
		if err := s.Append(h); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Append adds the header right after the current tip.
func (s *MemoryStore) Append(header types.Header) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.headers); n > 0 {
		tip := s.headers[n-1]
		if header.Slot != tip.Slot+1 {
			return errors.Wrapf(ErrNotContiguous, "tip %d, got %d", tip.Slot, header.Slot)
		}
	}
	s.headers = append(s.headers, header)
	return nil
}

// Prune drops every header below slot.
func (s *MemoryStore) Prune(slot uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.headers) == 0 || slot <= s.headers[0].Slot {
		return
	}
	drop := slot - s.headers[0].Slot
	if drop >= uint64(len(s.headers)) {
		s.headers = nil
		return
	}
	s.headers = append([]types.Header(nil), s.headers[drop:]...)
}

func (s *MemoryStore) BaseHeaderSlot() (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.headers) == 0 {
		return 0, false, nil
	}
	return s.headers[0].Slot, true, nil
}

func (s *MemoryStore) TipHeaderSlot() (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.headers) == 0 {
		return 0, false, nil
	}
	return s.headers[len(s.headers)-1].Slot, true, nil
}

// Header returns the stored header at slot.
func (s *MemoryStore) Header(slot uint64) (types.Header, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.headers) == 0 || slot < s.headers[0].Slot {
		return types.Header{}, false
	}
	idx := slot - s.headers[0].Slot
	if idx >= uint64(len(s.headers)) {
		return types.Header{}, false
	}
	return s.headers[idx], true
}

// AccumulatorView returns the accumulator over [base, maxSlot], which is
// what an on-chain client with that window commits to.
func (s *MemoryStore) AccumulatorView(maxSlot uint64) (Accumulator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.headers) == 0 {
		return nil, errors.New("header store is empty")
	}
	base := s.headers[0].Slot
	tip := s.headers[len(s.headers)-1].Slot
	if maxSlot < base || maxSlot > tip {
		return nil, errors.Errorf("accumulator view up to %d is outside stored headers [%d, %d]", maxSlot, base, tip)
	}
	acc := mmr.New()
	for _, h := range s.headers[:maxSlot-base+1] {
		acc.Push(h.Digest())
	}
	return &MMRView{acc: acc}, nil
}

// MMRView is an immutable snapshot of the header accumulator.
type MMRView struct {
	acc *mmr.MMR
}

func (v *MMRView) Root() (types.HeaderDigest, error) {
	return v.acc.Root()
}

func (v *MMRView) GenerateProof(position uint64) ([]types.HeaderDigest, error) {
	return v.acc.GenProof(position)
}
