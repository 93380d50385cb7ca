// Package fixture builds a small, fully consistent beacon/execution/light-client
// world for tests: a Capella block carrying signed transactions, the matching
// receipts, a contiguous header window around the block and the on-chain
// client record committing to that window.
package fixture

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/protolambda/zrnt/eth2/beacon/capella"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/zrnt/eth2/configs"
	"github.com/protolambda/ztyp/view"

	"github.com/kysee/forcerelay/mmr"
	"github.com/kysee/forcerelay/proofs"
	"github.com/kysee/forcerelay/types"
)

const testKeyHex = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

var chainID = big.NewInt(1)

type Options struct {
	MinimalSlot  uint64
	HeadersCount uint64
	BlockSlot    uint64
	TxCount      int
	ClientID     uint8
}

func DefaultOptions() Options {
	return Options{
		MinimalSlot:  6_000_000,
		HeadersCount: 13,
		BlockSlot:    6_000_005,
		TxCount:      4,
		ClientID:     1,
	}
}

// World is the output of Build.
type World struct {
	Spec         *zrntcommon.Spec
	Block        *capella.BeaconBlock
	Cached       *proofs.CachedBeaconBlock
	Transactions []*ethtypes.Transaction
	Receipts     *proofs.Receipts
	Headers      []types.Header
	Client       types.Client
}

func signedTransactions(key *ecdsa.PrivateKey, n int) ([]*ethtypes.Transaction, error) {
	signer := ethtypes.LatestSignerForChainID(chainID)
	txs := make([]*ethtypes.Transaction, n)
	for i := range txs {
		to := common.BigToAddress(big.NewInt(int64(0x1000 + i)))
		tx, err := ethtypes.SignNewTx(key, signer, &ethtypes.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     uint64(i),
			GasTipCap: big.NewInt(1_000_000_000),
			GasFeeCap: big.NewInt(30_000_000_000),
			Gas:       21_000,
			To:        &to,
			Value:     big.NewInt(int64(i+1) * 1_000_000_000_000),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "sign transaction %d", i)
		}
		txs[i] = tx
	}
	return txs, nil
}

func receiptsOf(txs []*ethtypes.Transaction, blockNumber uint64) ethtypes.Receipts {
	receipts := make(ethtypes.Receipts, len(txs))
	var cumulative uint64
	for i, tx := range txs {
		cumulative += tx.Gas()
		receipts[i] = &ethtypes.Receipt{
			Type:              tx.Type(),
			Status:            ethtypes.ReceiptStatusSuccessful,
			CumulativeGasUsed: cumulative,
			Logs:              []*ethtypes.Log{},
			TxHash:            tx.Hash(),
			GasUsed:           tx.Gas(),
			BlockNumber:       new(big.Int).SetUint64(blockNumber),
			TransactionIndex:  uint(i),
		}
	}
	return receipts
}

func fillerHeader(slot uint64, parent common.Hash) types.Header {
	return types.Header{
		Slot:          slot,
		ProposerIndex: slot % 1024,
		ParentRoot:    parent,
		StateRoot:     crypto.Keccak256Hash([]byte("state"), new(big.Int).SetUint64(slot).Bytes()),
		BodyRoot:      crypto.Keccak256Hash([]byte("body"), new(big.Int).SetUint64(slot).Bytes()),
	}
}

// Build assembles a World; the block sits at opts.BlockSlot inside
// [opts.MinimalSlot, opts.MinimalSlot+opts.HeadersCount-1].
func Build(opts Options) (*World, error) {
	if opts.HeadersCount == 0 || opts.TxCount == 0 {
		return nil, errors.New("fixture needs at least one header and one transaction")
	}
	maximalSlot := opts.MinimalSlot + opts.HeadersCount - 1
	if opts.BlockSlot < opts.MinimalSlot || opts.BlockSlot > maximalSlot {
		return nil, errors.Errorf("block slot %d outside [%d, %d]", opts.BlockSlot, opts.MinimalSlot, maximalSlot)
	}

	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		return nil, err
	}
	txs, err := signedTransactions(key, opts.TxCount)
	if err != nil {
		return nil, err
	}
	blockNumber := opts.BlockSlot - 1000
	receipts := proofs.NewReceipts(receiptsOf(txs, blockNumber))

	spec := configs.Mainnet
	headers := make([]types.Header, 0, opts.HeadersCount)
	parent := common.HexToHash("0x01")
	var block *capella.BeaconBlock
	var cached *proofs.CachedBeaconBlock
	for slot := opts.MinimalSlot; slot <= maximalSlot; slot++ {
		if slot != opts.BlockSlot {
			header := fillerHeader(slot, parent)
			headers = append(headers, header)
			parent = header.Root()
			continue
		}
		block, err = newBlock(spec, slot, parent, blockNumber, txs, receipts.Root())
		if err != nil {
			return nil, err
		}
		cached, err = proofs.NewCachedBeaconBlock(spec, block)
		if err != nil {
			return nil, err
		}
		headers = append(headers, cached.Header())
		parent = cached.Header().Root()
	}

	acc := mmr.New()
	for _, header := range headers {
		acc.Push(header.Digest())
	}
	root, err := acc.Root()
	if err != nil {
		return nil, err
	}

	return &World{
		Spec:         spec,
		Block:        block,
		Cached:       cached,
		Transactions: txs,
		Receipts:     receipts,
		Headers:      headers,
		Client: types.Client{
			ID:                 opts.ClientID,
			MinimalSlot:        opts.MinimalSlot,
			MaximalSlot:        maximalSlot,
			TipValidHeaderRoot: headers[len(headers)-1].Root(),
			HeadersMmrRoot:     root,
		},
	}, nil
}

func newBlock(spec *zrntcommon.Spec, slot uint64, parent common.Hash, blockNumber uint64,
	txs []*ethtypes.Transaction, receiptsRoot common.Hash) (*capella.BeaconBlock, error) {
	transactions := make(zrntcommon.PayloadTransactions, len(txs))
	var gasUsed uint64
	for i, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return nil, errors.Wrapf(err, "encode transaction %d", i)
		}
		transactions[i] = raw
		gasUsed += tx.Gas()
	}

	block := &capella.BeaconBlock{
		Slot:          zrntcommon.Slot(slot),
		ProposerIndex: zrntcommon.ValidatorIndex(slot % 1024),
		ParentRoot:    zrntcommon.Root(parent),
		StateRoot:     zrntcommon.Root(crypto.Keccak256Hash([]byte("state"), new(big.Int).SetUint64(slot).Bytes())),
	}
	body := &block.Body
	body.Graffiti = zrntcommon.Root(common.BytesToHash([]byte("forcerelay")))
	body.SyncAggregate.SyncCommitteeBits = make([]byte, int(spec.SYNC_COMMITTEE_SIZE)/8)

	payload := &body.ExecutionPayload
	payload.ParentHash = zrntcommon.Hash32(crypto.Keccak256Hash([]byte("parent"), new(big.Int).SetUint64(blockNumber).Bytes()))
	payload.ReceiptsRoot = zrntcommon.Bytes32(receiptsRoot)
	payload.BlockNumber = view.Uint64View(blockNumber)
	payload.GasLimit = view.Uint64View(30_000_000)
	payload.GasUsed = view.Uint64View(gasUsed)
	payload.Timestamp = zrntcommon.Timestamp(1_700_000_000 + slot*12)
	payload.BlockHash = zrntcommon.Hash32(crypto.Keccak256Hash([]byte("block"), new(big.Int).SetUint64(blockNumber).Bytes()))
	payload.Transactions = transactions
	return block, nil
}
