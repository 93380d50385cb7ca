// Package verification runs the same checks as the light client verifier
// script, so that proofs are validated before they are submitted.
package verification

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/beacon/merkle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/zrnt/eth2/configs"
	"github.com/protolambda/ztyp/tree"

	"github.com/kysee/forcerelay/mmr"
	"github.com/kysee/forcerelay/types"
)

// ErrorCode is the diagnostic the verifier script exits with.
type ErrorCode int8

const (
	MalformedTransactionProof ErrorCode = iota + 1
	HeaderSlotOutOfRange
	HeaderMmrProofMismatch
	ReceiptsRootSszProofMismatch
	MalformedTransactionPayload
	TransactionSszProofMismatch
	ReceiptMptProofMismatch
	ReceiptMismatch
)

var codeNames = map[ErrorCode]string{
	MalformedTransactionProof:    "malformed transaction proof",
	HeaderSlotOutOfRange:         "header slot out of client range",
	HeaderMmrProofMismatch:       "header mmr proof mismatch",
	ReceiptsRootSszProofMismatch: "receipts root ssz proof mismatch",
	MalformedTransactionPayload:  "malformed transaction payload",
	TransactionSszProofMismatch:  "transaction ssz proof mismatch",
	ReceiptMptProofMismatch:      "receipt mpt proof mismatch",
	ReceiptMismatch:              "receipt mismatch",
}

func (c ErrorCode) Error() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown verification error %d", int8(c))
}

func hashesToValues(hashes []common.Hash) merkle.Values {
	values := make(merkle.Values, len(hashes))
	for i, h := range hashes {
		values[i] = merkle.Value(h)
	}
	return values
}

// VerifyTransactionProof checks a packed proof against the committed client state.
func VerifyTransactionProof(client types.Client, packedProof []byte) error {
	proof, err := types.DecodeTransactionProof(packedProof)
	if err != nil {
		return MalformedTransactionProof
	}
	return verifyProof(client, proof)
}

func verifyProof(client types.Client, proof *types.TransactionProof) error {
	slot := proof.Header.Slot
	if slot < client.MinimalSlot || slot > client.MaximalSlot {
		return HeaderSlotOutOfRange
	}
	if err := mmr.VerifyProof(
		client.HeadersMmrRoot,
		client.HeadersCount(),
		slot-client.MinimalSlot,
		proof.Header.Digest(),
		proof.HeaderMmrProof,
	); err != nil {
		return HeaderMmrProofMismatch
	}
	if len(proof.ReceiptsRootSszProof) != ReceiptsRootProofDepth {
		return ReceiptsRootSszProofMismatch
	}
	if err := merkle.VerifyProof(
		proof.Header.BodyRoot,
		ReceiptsRootGindex(),
		hashesToValues(proof.ReceiptsRootSszProof),
		merkle.Value(proof.ReceiptsRoot),
	); err != nil {
		return ReceiptsRootSszProofMismatch
	}
	return nil
}

// TransactionRoot is the SSZ root of a payload transaction (ByteList).
func TransactionRoot(tx []byte) common.Hash {
	root := zrntcommon.Transaction(tx).HashTreeRoot(configs.Mainnet, tree.GetHashFn())
	return common.Hash(root)
}

// VerifyPayload checks a packed payload against an already verified proof.
func VerifyPayload(proof *types.TransactionProof, packedPayload []byte) error {
	payload, err := types.DecodeTransactionPayload(packedPayload)
	if err != nil {
		return MalformedTransactionPayload
	}
	if proof.TransactionIndex >= 1<<TransactionsDepth || len(proof.TransactionSszProof) != TransactionProofDepth {
		return TransactionSszProofMismatch
	}
	if err := merkle.VerifyProof(
		proof.Header.BodyRoot,
		TransactionGindex(proof.TransactionIndex),
		hashesToValues(proof.TransactionSszProof),
		merkle.Value(TransactionRoot(payload.Transaction)),
	); err != nil {
		return TransactionSszProofMismatch
	}

	proofDb := memorydb.New()
	for _, node := range proof.ReceiptMptProof {
		if err := proofDb.Put(crypto.Keccak256(node), node); err != nil {
			return ReceiptMptProofMismatch
		}
	}
	key := rlp.AppendUint64(nil, proof.TransactionIndex)
	value, err := trie.VerifyProof(proof.ReceiptsRoot, key, proofDb)
	if err != nil || value == nil {
		return ReceiptMptProofMismatch
	}
	if !bytes.Equal(value, payload.Receipt) {
		return ReceiptMismatch
	}
	return nil
}
