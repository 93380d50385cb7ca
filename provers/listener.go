package relayer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/protolambda/zrnt/eth2/configs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kysee/forcerelay/proofs"
	"github.com/kysee/forcerelay/provers/store"
	cfgtypes "github.com/kysee/forcerelay/provers/types"
	"github.com/kysee/forcerelay/types"
)

// ExecutionClient is the execution view: transactions and receipts.
type ExecutionClient interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	BlockReceipts(ctx context.Context, blockNrOrHash rpc.BlockNumberOrHash) ([]*ethtypes.Receipt, error)
}

var _ ExecutionClient = (*ethclient.Client)(nil)

// Listener gathers relay inputs from the beacon and execution nodes.
type Listener struct {
	fetcher   cfgtypes.Fetcher
	execution ExecutionClient
	logger    zerolog.Logger
}

// NewListener creates a new Listener with the given fetcher and execution client
func NewListener(fetcher cfgtypes.Fetcher, execution ExecutionClient) *Listener {
	return &Listener{
		fetcher:   fetcher,
		execution: execution,
		logger:    log.With().Str("module", "listener").Logger(),
	}
}

// BeaconBlock fetches the block at slot and prepares it for proving.
func (l *Listener) BeaconBlock(ctx context.Context, slot uint64) (*proofs.CachedBeaconBlock, error) {
	blockResponse, err := l.fetcher.Block(ctx, slot)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch block at slot %d", slot)
	}
	block, err := proofs.NewCachedBeaconBlock(configs.Mainnet, &blockResponse.Data.Message)
	if err != nil {
		return nil, errors.Wrapf(err, "block at slot %d", slot)
	}
	return block, nil
}

// RelayRequest collects the beacon block at slot and the transaction txHash
// with its block receipts. The transaction must belong to the execution block
// embedded at that slot.
func (l *Listener) RelayRequest(ctx context.Context, slot uint64, txHash common.Hash) (*RelayRequest, error) {
	block, err := l.BeaconBlock(ctx, slot)
	if err != nil {
		return nil, err
	}

	tx, pending, err := l.execution.TransactionByHash(ctx, txHash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch transaction %s", txHash)
	}
	if pending {
		return nil, errors.Wrapf(ErrNotFound, "transaction %s is pending", txHash)
	}
	receipt, err := l.execution.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch receipt of %s", txHash)
	}
	if receipt.BlockNumber == nil || receipt.BlockNumber.Uint64() != block.BlockNumber() {
		return nil, errors.Errorf("transaction %s is in block %v, slot %d carries block %d",
			txHash, receipt.BlockNumber, slot, block.BlockNumber())
	}

	receipts, err := l.execution.BlockReceipts(ctx, rpc.BlockNumberOrHashWithHash(block.BlockHash(), true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch receipts of block %d", block.BlockNumber())
	}
	l.logger.Debug().
		Uint64("slot", slot).
		Uint64("block", block.BlockNumber()).
		Int("txs", block.TransactionCount()).
		Int("receipts", len(receipts)).
		Msg("collected relay inputs")
	return &RelayRequest{
		Block:       block,
		Transaction: tx,
		Receipts:    proofs.NewReceipts(receipts),
	}, nil
}

// LoadHeaders appends the headers of [from, to] to s.
func (l *Listener) LoadHeaders(ctx context.Context, s *store.MemoryStore, from, to uint64) error {
	for slot := from; slot <= to; slot++ {
		resp, err := l.fetcher.Header(ctx, slot)
		if err != nil {
			return errors.Wrapf(err, "failed to fetch header at slot %d", slot)
		}
		if err := s.Append(types.HeaderFromBeacon(&resp.Data.Header.Message)); err != nil {
			return err
		}
	}
	l.logger.Debug().Uint64("from", from).Uint64("to", to).Msg("loaded headers")
	return nil
}
