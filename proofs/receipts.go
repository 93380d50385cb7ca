package proofs

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/pkg/errors"
)

// Receipts are the execution receipts of one block together with their trie root.
type Receipts struct {
	original ethtypes.Receipts
	root     common.Hash
}

func NewReceipts(receipts ethtypes.Receipts) *Receipts {
	return &Receipts{
		original: receipts,
		root:     ethtypes.DeriveSha(receipts, trie.NewStackTrie(nil)),
	}
}

func (r *Receipts) Original() ethtypes.Receipts {
	return r.original
}

// Root is the receipts root the execution header commits to.
func (r *Receipts) Root() common.Hash {
	return r.root
}

// EncodeIndex returns the consensus encoding of receipt i, as stored in the trie.
func (r *Receipts) EncodeIndex(i int) []byte {
	var buf bytes.Buffer
	r.original.EncodeIndex(i, &buf)
	return buf.Bytes()
}

// GenerateProof returns the trie nodes proving receipt i under Root.
func (r *Receipts) GenerateProof(index int) ([][]byte, error) {
	if index < 0 || index >= len(r.original) {
		return nil, errors.Errorf("receipt index %d out of range (%d receipts)", index, len(r.original))
	}
	tr := trie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))
	for i := range r.original {
		tr.MustUpdate(rlp.AppendUint64(nil, uint64(i)), r.EncodeIndex(i))
	}
	if tr.Hash() != r.root {
		return nil, errors.Errorf("receipts trie root %s does not match %s", tr.Hash(), r.root)
	}

	proofDb := memorydb.New()
	if err := tr.Prove(rlp.AppendUint64(nil, uint64(index)), proofDb); err != nil {
		return nil, errors.Wrap(err, "prove receipt")
	}

	var nodes [][]byte
	iter := proofDb.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		nodes = append(nodes, common.CopyBytes(iter.Value()))
	}
	return nodes, nil
}

// FindIndex returns the position of the first receipt produced by txHash.
func (r *Receipts) FindIndex(txHash common.Hash) (int, bool) {
	return FindReceiptIndex(r.original, txHash)
}

// FindReceiptIndex scans receipts linearly for the first one whose TxHash matches.
func FindReceiptIndex(receipts ethtypes.Receipts, txHash common.Hash) (int, bool) {
	for i, receipt := range receipts {
		if receipt.TxHash == txHash {
			return i, true
		}
	}
	return -1, false
}
