package relayer

import (
	"context"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ckbtypes "github.com/nervosnetwork/ckb-sdk-go/v2/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kysee/forcerelay/proofs"
	"github.com/kysee/forcerelay/provers/store"
)

// RelayRequest is everything needed to prove one Ethereum transaction.
type RelayRequest struct {
	Block       BeaconBlock
	Transaction *ethtypes.Transaction
	Receipts    *proofs.Receipts
}

// Relayer sequences one relay attempt. It keeps no state between attempts.
type Relayer struct {
	assembler *Assembler
	consensus store.ConsensusStore
	logger    zerolog.Logger
}

// NewRelayer creates a new Relayer over the assembler and the local consensus store
func NewRelayer(assembler *Assembler, consensus store.ConsensusStore) *Relayer {
	return &Relayer{
		assembler: assembler,
		consensus: consensus,
		logger:    log.With().Str("module", "relayer").Logger(),
	}
}

// OnChainClient returns the authoritative client, or ErrNotFound if none is deployed.
func (r *Relayer) OnChainClient(ctx context.Context) (*LatestClient, error) {
	client, err := r.assembler.FetchOnChainLatestClient(ctx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.Wrap(ErrNotFound, "no lightclient cell deployed on ckb")
	}
	return client, nil
}

// CheckOnChainClientAlignment resolves the client and checks the local store covers it.
func (r *Relayer) CheckOnChainClientAlignment(ctx context.Context) (*LatestClient, error) {
	client, err := r.OnChainClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := CheckAlignment(r.consensus, client.Client); err != nil {
		return nil, err
	}
	return client, nil
}

// RefreshBinaryCellDep looks the verifier binary up again. The result is
// meant for a single attempt.
func (r *Relayer) RefreshBinaryCellDep(ctx context.Context) (*ckbtypes.CellDep, error) {
	dep, err := r.assembler.BinaryCellDep(ctx)
	if err != nil {
		return nil, err
	}
	if dep == nil {
		return nil, errors.Wrap(ErrNotFound, "light client binary cell not found")
	}
	return dep, nil
}

// Relay runs one attempt and returns the first failure unchanged.
func (r *Relayer) Relay(ctx context.Context, req *RelayRequest) (tx *ckbtypes.Transaction, err error) {
	if req == nil || req.Block == nil || req.Transaction == nil || req.Receipts == nil {
		return nil, ErrIncompleteRequest
	}
	start := time.Now()
	logger := r.logger.With().
		Uint64("slot", req.Block.Slot()).
		Stringer("tx", req.Transaction.Hash()).
		Logger()
	defer func() {
		observeAttempt(start, err)
		switch {
		case err == nil:
		case IsRecoverable(err):
			logger.Warn().Err(err).Msg("relay attempt deferred")
		default:
			logger.Error().Err(err).Msg("relay attempt failed")
		}
	}()

	client, err := r.CheckOnChainClientAlignment(ctx)
	if err != nil {
		return nil, err
	}
	binary, err := r.RefreshBinaryCellDep(ctx)
	if err != nil {
		return nil, err
	}
	tx, err = r.assembler.AssembleTx(client, binary, r.consensus, req.Block, req.Transaction, req.Receipts)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Uint8("client_id", client.Client.ID).
		Int("cell_deps", len(tx.CellDeps)).
		Int("witness", len(tx.Witnesses[0])).
		Msg("verification transaction assembled")
	return tx, nil
}
