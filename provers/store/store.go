package store

import "github.com/kysee/forcerelay/types"

//go:generate mockgen -destination=../mocks/mock_consensus.go -package=mocks github.com/kysee/forcerelay/provers/store ConsensusStore,Accumulator

// ConsensusStore is the read side of the local beacon header store. A
// missing base or tip slot means the store has not been initialized yet.
type ConsensusStore interface {
	BaseHeaderSlot() (uint64, bool, error)
	TipHeaderSlot() (uint64, bool, error)
	AccumulatorView(maxSlot uint64) (Accumulator, error)
}

// Accumulator generates inclusion proofs for header positions.
type Accumulator interface {
	GenerateProof(position uint64) ([]types.HeaderDigest, error)
}
