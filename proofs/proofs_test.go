package proofs

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/beacon/merkle"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/protolambda/zrnt/eth2/beacon/capella"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/zrnt/eth2/configs"
	"github.com/protolambda/ztyp/tree"
	"github.com/protolambda/ztyp/view"
	"github.com/stretchr/testify/require"

	"github.com/kysee/forcerelay/verification"
)

func testReceipts(n int) ethtypes.Receipts {
	receipts := make(ethtypes.Receipts, n)
	for i := range receipts {
		receipts[i] = &ethtypes.Receipt{
			Type:              ethtypes.DynamicFeeTxType,
			Status:            ethtypes.ReceiptStatusSuccessful,
			CumulativeGasUsed: uint64(21000 * (i + 1)),
			Logs:              []*ethtypes.Log{},
			TxHash:            common.BigToHash(big.NewInt(int64(i + 1))),
		}
	}
	return receipts
}

func TestReceiptProof(t *testing.T) {
	receipts := NewReceipts(testReceipts(40))
	require.Equal(t, ethtypes.DeriveSha(receipts.Original(), trie.NewStackTrie(nil)), receipts.Root())

	target := 17
	nodes, err := receipts.GenerateProof(target)
	require.NoError(t, err)
	t.Logf("receipt[%d] proof: %d nodes", target, len(nodes))

	proofDb := memorydb.New()
	for _, node := range nodes {
		require.NoError(t, proofDb.Put(crypto.Keccak256(node), node))
	}
	value, err := trie.VerifyProof(receipts.Root(), rlp.AppendUint64(nil, uint64(target)), proofDb)
	require.NoError(t, err)
	require.Equal(t, receipts.EncodeIndex(target), value)

	var decoded ethtypes.Receipt
	require.NoError(t, decoded.UnmarshalBinary(value))
	require.Equal(t, receipts.Original()[target].CumulativeGasUsed, decoded.CumulativeGasUsed)

	_, err = receipts.GenerateProof(40)
	require.Error(t, err)
}

func testBlock(t *testing.T, txs [][]byte) *capella.BeaconBlock {
	spec := configs.Mainnet
	transactions := make(zrntcommon.PayloadTransactions, len(txs))
	for i, tx := range txs {
		transactions[i] = zrntcommon.Transaction(tx)
	}
	block := &capella.BeaconBlock{
		Slot:          zrntcommon.Slot(1234),
		ProposerIndex: zrntcommon.ValidatorIndex(9),
		ParentRoot:    zrntcommon.Root{0x01},
		StateRoot:     zrntcommon.Root{0x02},
	}
	block.Body.Graffiti = zrntcommon.Root{0x03}
	block.Body.ExecutionPayload.BlockNumber = view.Uint64View(777)
	block.Body.ExecutionPayload.GasLimit = view.Uint64View(30_000_000)
	block.Body.ExecutionPayload.ReceiptsRoot = zrntcommon.Bytes32{0x04}
	block.Body.ExecutionPayload.ExtraData = zrntcommon.ExtraData("forcerelay")
	block.Body.ExecutionPayload.Transactions = transactions
	block.Body.SyncAggregate.SyncCommitteeBits = make([]byte, int(spec.SYNC_COMMITTEE_SIZE)/8)
	return block
}

func TestCachedBeaconBlockProofs(t *testing.T) {
	spec := configs.Mainnet
	txs := [][]byte{{0x02, 0x01}, {0x02, 0x02, 0x03}, {0x02, 0x04}}
	block := testBlock(t, txs)

	cached, err := NewCachedBeaconBlock(spec, block)
	require.NoError(t, err)
	require.Equal(t, uint64(1234), cached.Slot())
	require.Equal(t, common.Hash(block.Body.HashTreeRoot(spec, tree.GetHashFn())), cached.Header().BodyRoot)
	require.Equal(t, common.Hash{0x04}, cached.ReceiptsRoot())
	require.Equal(t, 3, cached.TransactionCount())
	require.Equal(t, uint64(777), cached.BlockNumber())

	bodyRoot := cached.Header().BodyRoot
	for i := range txs {
		branch, err := cached.GenerateTransactionProof(i)
		require.NoError(t, err)
		require.Len(t, branch, verification.TransactionProofDepth)

		values := make(merkle.Values, len(branch))
		for j, h := range branch {
			values[j] = merkle.Value(h)
		}
		leaf := merkle.Value(verification.TransactionRoot(txs[i]))
		require.NoError(t, merkle.VerifyProof(bodyRoot, verification.TransactionGindex(uint64(i)), values, leaf))

		raw, err := cached.Transaction(i)
		require.NoError(t, err)
		require.Equal(t, txs[i], raw)
	}

	branch := cached.GenerateReceiptsRootProof()
	require.Len(t, branch, verification.ReceiptsRootProofDepth)
	values := make(merkle.Values, len(branch))
	for j, h := range branch {
		values[j] = merkle.Value(h)
	}
	require.NoError(t, merkle.VerifyProof(bodyRoot, verification.ReceiptsRootGindex(), values, merkle.Value(cached.ReceiptsRoot())))

	_, err = cached.Transaction(3)
	require.Error(t, err)
	_, err = cached.GenerateTransactionProof(-1)
	require.Error(t, err)
}

func TestMerkleBranchMatchesMerkleize(t *testing.T) {
	hFn := tree.GetHashFn()
	leaves := []tree.Root{{1}, {2}, {3}, {4}, {5}}
	root := merkleize(leaves, 5, hFn)
	for i := range leaves {
		branch := merkleBranch(leaves, uint64(i), 5, hFn)
		values := make(merkle.Values, len(branch))
		for j, r := range branch {
			values[j] = merkle.Value(r)
		}
		require.NoError(t, merkle.VerifyProof(common.Hash(root), uint64(1)<<5|uint64(i), values, merkle.Value(leaves[i])))
	}
}

func TestFindReceiptIndex(t *testing.T) {
	receipts := testReceipts(3)
	idx, ok := FindReceiptIndex(receipts, receipts[1].TxHash)
	require.True(t, ok)
	require.Equal(t, 1, idx)

	_, ok = FindReceiptIndex(receipts, common.HexToHash("0xdead"))
	require.False(t, ok)

	receipts[2].TxHash = receipts[1].TxHash
	idx, ok = NewReceipts(receipts).FindIndex(receipts[1].TxHash)
	require.True(t, ok)
	require.Equal(t, 1, idx)
}
