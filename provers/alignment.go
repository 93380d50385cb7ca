package relayer

import (
	"github.com/pkg/errors"

	"github.com/kysee/forcerelay/provers/store"
	"github.com/kysee/forcerelay/types"
)

// ErrStoreUninitialized is a misalignment: the store has no headers yet.
var ErrStoreUninitialized = errors.WithMessage(ErrMisalignment, "consensus storage is not initialized")

// CheckAlignment makes sure the local header store can attest every header
// the on-chain client commits to: same base slot, and a tip at or beyond its
// maximal slot.
func CheckAlignment(consensus store.ConsensusStore, client types.Client) error {
	base, ok, err := consensus.BaseHeaderSlot()
	if err != nil {
		return errors.Wrap(err, "read base header slot")
	}
	if !ok {
		return ErrStoreUninitialized
	}
	tip, ok, err := consensus.TipHeaderSlot()
	if err != nil {
		return errors.Wrap(err, "read tip header slot")
	}
	if !ok {
		return ErrStoreUninitialized
	}

	if client.MinimalSlot != base || client.MaximalSlot > tip {
		return errors.Wrapf(ErrMisalignment,
			"consensus storage [%d, %d] is not aligned to onchain client [%d, %d], please wait a while...",
			base, tip, client.MinimalSlot, client.MaximalSlot)
	}
	return nil
}
