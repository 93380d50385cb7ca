package types

import (
	"context"

	"github.com/protolambda/zrnt/eth2/beacon/capella"
	"github.com/protolambda/zrnt/eth2/beacon/common"
)

// BlockAPIResponse represents the Beacon API v2 response for blocks
type BlockAPIResponse struct {
	Version             string                    `json:"version"`
	ExecutionOptimistic bool                      `json:"execution_optimistic"`
	Finalized           bool                      `json:"finalized"`
	Data                capella.SignedBeaconBlock `json:"data"`
}

// HeaderAPIResponse represents the Beacon API v1 response for block headers
type HeaderAPIResponse struct {
	ExecutionOptimistic bool `json:"execution_optimistic"`
	Finalized           bool `json:"finalized"`
	Data                struct {
		Root      common.Root                    `json:"root"`
		Canonical bool                           `json:"canonical"`
		Header    common.SignedBeaconBlockHeader `json:"header"`
	} `json:"data"`
}

// Fetcher defines the interface for fetching beacon chain data
type Fetcher interface {
	Block(ctx context.Context, slot uint64) (*BlockAPIResponse, error)
	Header(ctx context.Context, slot uint64) (*HeaderAPIResponse, error)
}
