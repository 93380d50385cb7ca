package proofs

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/protolambda/zrnt/eth2/beacon/capella"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"

	"github.com/kysee/forcerelay/types"
	"github.com/kysee/forcerelay/verification"
)

// CachedBeaconBlock keeps the field roots of a Capella block so that body
// proofs can be generated without rehashing the whole block.
type CachedBeaconBlock struct {
	header        types.Header
	transactions  zrntcommon.PayloadTransactions
	receiptsRoot  common.Hash
	blockNumber   uint64
	blockHash     common.Hash
	bodyFields    []tree.Root
	payloadFields []tree.Root
	txLeaves      []tree.Root
	hFn           tree.HashFn
}

func bodyFieldRoots(spec *zrntcommon.Spec, hFn tree.HashFn, body *capella.BeaconBlockBody) []tree.Root {
	return []tree.Root{
		body.RandaoReveal.HashTreeRoot(hFn),
		body.Eth1Data.HashTreeRoot(hFn),
		tree.Root(body.Graffiti),
		body.ProposerSlashings.HashTreeRoot(spec, hFn),
		body.AttesterSlashings.HashTreeRoot(spec, hFn),
		body.Attestations.HashTreeRoot(spec, hFn),
		body.Deposits.HashTreeRoot(spec, hFn),
		body.VoluntaryExits.HashTreeRoot(spec, hFn),
		body.SyncAggregate.HashTreeRoot(spec, hFn),
		body.ExecutionPayload.HashTreeRoot(spec, hFn),
		body.BLSToExecutionChanges.HashTreeRoot(spec, hFn),
	}
}

func payloadFieldRoots(hFn tree.HashFn, h *capella.ExecutionPayloadHeader) []tree.Root {
	var feeRecipient tree.Root
	copy(feeRecipient[:], h.FeeRecipient[:])
	return []tree.Root{
		tree.Root(h.ParentHash),
		feeRecipient,
		tree.Root(h.StateRoot),
		tree.Root(h.ReceiptsRoot),
		h.LogsBloom.HashTreeRoot(hFn),
		tree.Root(h.PrevRandao),
		uint64Root(uint64(h.BlockNumber)),
		uint64Root(uint64(h.GasLimit)),
		uint64Root(uint64(h.GasUsed)),
		uint64Root(uint64(h.Timestamp)),
		h.ExtraData.HashTreeRoot(hFn),
		h.BaseFeePerGas.HashTreeRoot(hFn),
		tree.Root(h.BlockHash),
		tree.Root(h.TransactionsRoot),
		tree.Root(h.WithdrawalsRoot),
	}
}

// NewCachedBeaconBlock hashes the block once and checks that the recomputed
// field roots reproduce zrnt's hash tree roots.
func NewCachedBeaconBlock(spec *zrntcommon.Spec, block *capella.BeaconBlock) (*CachedBeaconBlock, error) {
	hFn := tree.GetHashFn()
	body := &block.Body

	payloadHeader := body.ExecutionPayload.Header(spec)
	payloadFields := payloadFieldRoots(hFn, payloadHeader)
	if merkleize(payloadFields, verification.PayloadDepth, hFn) != payloadHeader.HashTreeRoot(hFn) {
		return nil, errors.New("execution payload field roots do not match its hash tree root")
	}
	bodyFields := bodyFieldRoots(spec, hFn, body)
	bodyRoot := body.HashTreeRoot(spec, hFn)
	if merkleize(bodyFields, verification.BodyDepth, hFn) != bodyRoot {
		return nil, errors.New("block body field roots do not match its hash tree root")
	}

	transactions := body.ExecutionPayload.Transactions
	txLeaves := make([]tree.Root, len(transactions))
	for i := range transactions {
		txLeaves[i] = transactions[i].HashTreeRoot(spec, hFn)
	}

	return &CachedBeaconBlock{
		header: types.Header{
			Slot:          uint64(block.Slot),
			ProposerIndex: uint64(block.ProposerIndex),
			ParentRoot:    common.Hash(block.ParentRoot),
			StateRoot:     common.Hash(block.StateRoot),
			BodyRoot:      common.Hash(bodyRoot),
		},
		transactions:  transactions,
		receiptsRoot:  common.Hash(payloadHeader.ReceiptsRoot),
		blockNumber:   uint64(payloadHeader.BlockNumber),
		blockHash:     common.Hash(payloadHeader.BlockHash),
		bodyFields:    bodyFields,
		payloadFields: payloadFields,
		txLeaves:      txLeaves,
		hFn:           hFn,
	}, nil
}

func (b *CachedBeaconBlock) Slot() uint64 {
	return b.header.Slot
}

func (b *CachedBeaconBlock) Header() types.Header {
	return b.header
}

// ReceiptsRoot is the receipts root committed in the execution payload.
func (b *CachedBeaconBlock) ReceiptsRoot() common.Hash {
	return b.receiptsRoot
}

// BlockNumber is the number of the embedded execution block.
func (b *CachedBeaconBlock) BlockNumber() uint64 {
	return b.blockNumber
}

func (b *CachedBeaconBlock) BlockHash() common.Hash {
	return b.blockHash
}

func (b *CachedBeaconBlock) TransactionCount() int {
	return len(b.transactions)
}

// Transaction returns the raw transaction embedded in the execution payload.
func (b *CachedBeaconBlock) Transaction(index int) ([]byte, error) {
	if index < 0 || index >= len(b.transactions) {
		return nil, errors.Errorf("transaction index %d out of range (block has %d transactions)",
			index, len(b.transactions))
	}
	return common.CopyBytes(b.transactions[index]), nil
}

// GenerateTransactionProof proves transactions[index] under the body root.
// Branch order is bottom-up: list data, length mix-in, payload fields, body fields.
func (b *CachedBeaconBlock) GenerateTransactionProof(index int) ([]common.Hash, error) {
	if index < 0 || index >= len(b.transactions) {
		return nil, errors.Errorf("invalid transaction index: %d", index)
	}
	branch := merkleBranch(b.txLeaves, uint64(index), verification.TransactionsDepth, b.hFn)
	branch = append(branch, lengthRoot(uint64(len(b.transactions))))
	branch = append(branch, merkleBranch(b.payloadFields, verification.TransactionsIndex, verification.PayloadDepth, b.hFn)...)
	branch = append(branch, merkleBranch(b.bodyFields, verification.ExecutionPayloadIndex, verification.BodyDepth, b.hFn)...)
	return toHashes(branch), nil
}

// GenerateReceiptsRootProof proves execution_payload.receipts_root under the body root.
func (b *CachedBeaconBlock) GenerateReceiptsRootProof() []common.Hash {
	branch := merkleBranch(b.payloadFields, verification.ReceiptsRootIndex, verification.PayloadDepth, b.hFn)
	branch = append(branch, merkleBranch(b.bodyFields, verification.ExecutionPayloadIndex, verification.BodyDepth, b.hFn)...)
	return toHashes(branch)
}
