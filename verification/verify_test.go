package verification_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kysee/forcerelay/internal/fixture"
	"github.com/kysee/forcerelay/mmr"
	"github.com/kysee/forcerelay/types"
	"github.com/kysee/forcerelay/verification"
)

func buildProof(t *testing.T, w *fixture.World, txIndex int) (*types.TransactionProof, *types.TransactionPayload) {
	t.Helper()
	acc := mmr.New()
	for _, h := range w.Headers {
		acc.Push(h.Digest())
	}
	mmrProof, err := acc.GenProof(w.Cached.Slot() - w.Client.MinimalSlot)
	require.NoError(t, err)
	txProof, err := w.Cached.GenerateTransactionProof(txIndex)
	require.NoError(t, err)
	receiptProof, err := w.Receipts.GenerateProof(txIndex)
	require.NoError(t, err)

	proof := &types.TransactionProof{
		Header:               w.Cached.Header(),
		ReceiptsRoot:         w.Cached.ReceiptsRoot(),
		TransactionIndex:     uint64(txIndex),
		HeaderMmrProof:       mmrProof,
		TransactionSszProof:  txProof,
		ReceiptMptProof:      receiptProof,
		ReceiptsRootSszProof: w.Cached.GenerateReceiptsRootProof(),
	}
	tx, err := w.Cached.Transaction(txIndex)
	require.NoError(t, err)
	return proof, &types.TransactionPayload{Transaction: tx, Receipt: w.Receipts.EncodeIndex(txIndex)}
}

func TestVerifyValidProofAndPayload(t *testing.T) {
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)

	for i := range w.Transactions {
		proof, payload := buildProof(t, w, i)
		require.NoError(t, verification.VerifyTransactionProof(w.Client, proof.Pack()))
		require.NoError(t, verification.VerifyPayload(proof, payload.Pack()))
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)
	proof, _ := buildProof(t, w, 0)

	require.Equal(t, verification.MalformedTransactionProof,
		verification.VerifyTransactionProof(w.Client, proof.Pack()[:20]))
	require.Equal(t, verification.MalformedTransactionPayload,
		verification.VerifyPayload(proof, []byte{1, 2, 3}))
}

// words packs little-endian 4-byte molecule header words.
func words(ns ...uint32) []byte {
	out := make([]byte, 0, 4*len(ns))
	for _, n := range ns {
		out = binary.LittleEndian.AppendUint32(out, n)
	}
	return out
}

func TestVerifyRejectsBrokenOffsets(t *testing.T) {
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)
	proof, _ := buildProof(t, w, 0)

	proofCases := map[string][]byte{
		"offsets past the end":      words(20, 16, 1000, 2000, 0),
		"unaligned first offset":    words(12, 10, 0),
		"decreasing offsets":        words(20, 16, 18, 17, 0),
		"first offset past the end": words(8, 12),
	}
	for name, data := range proofCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, verification.MalformedTransactionProof, verification.VerifyTransactionProof(w.Client, data))
		})
	}

	payloadCases := map[string][]byte{
		"offset past the end":    words(16, 12, 999, 0),
		"unaligned first offset": words(16, 9, 12, 0),
		"short bytes field":      append(words(14, 12, 12), 0x01, 0x00),
	}
	for name, data := range payloadCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, verification.MalformedTransactionPayload, verification.VerifyPayload(proof, data))
		})
	}
}

func TestVerifySurvivesBitFlips(t *testing.T) {
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)
	proof, payload := buildProof(t, w, 1)
	packedProof, packedPayload := proof.Pack(), payload.Pack()

	for i := range packedProof {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), packedProof...)
			mutated[i] ^= 1 << bit
			require.NotPanics(t, func() {
				_ = verification.VerifyTransactionProof(w.Client, mutated)
			}, "proof byte %d bit %d", i, bit)
		}
	}
	for i := range packedPayload {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), packedPayload...)
			mutated[i] ^= 1 << bit
			require.NotPanics(t, func() {
				_ = verification.VerifyPayload(proof, mutated)
			}, "payload byte %d bit %d", i, bit)
		}
	}
}

func TestVerifyPayloadRejectsIndexOutsideTransactionList(t *testing.T) {
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)
	proof, payload := buildProof(t, w, 1)

	proof.TransactionIndex |= 1 << (verification.TransactionsDepth + 1)
	require.Equal(t, verification.TransactionSszProofMismatch, verification.VerifyPayload(proof, payload.Pack()))
}

func TestVerifyRejectsSlotOutsideClient(t *testing.T) {
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)
	proof, _ := buildProof(t, w, 0)

	client := w.Client
	client.MinimalSlot = proof.Header.Slot + 1
	require.Equal(t, verification.HeaderSlotOutOfRange, verification.VerifyTransactionProof(client, proof.Pack()))

	client = w.Client
	client.MaximalSlot = proof.Header.Slot - 1
	require.Equal(t, verification.HeaderSlotOutOfRange, verification.VerifyTransactionProof(client, proof.Pack()))
}

func TestVerifyRejectsStaleMmrRoot(t *testing.T) {
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)
	proof, _ := buildProof(t, w, 1)

	client := w.Client
	client.HeadersMmrRoot.ChildrenHash[0] ^= 0xff
	require.Equal(t, verification.HeaderMmrProofMismatch, verification.VerifyTransactionProof(client, proof.Pack()))
}

func TestVerifyRejectsWrongReceiptsRoot(t *testing.T) {
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)
	proof, _ := buildProof(t, w, 1)

	proof.ReceiptsRoot[31] ^= 0x01
	require.Equal(t, verification.ReceiptsRootSszProofMismatch, verification.VerifyTransactionProof(w.Client, proof.Pack()))
}

func TestVerifyPayloadRejectsForeignTransaction(t *testing.T) {
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)
	proof, payload := buildProof(t, w, 2)

	other, err := w.Cached.Transaction(3)
	require.NoError(t, err)
	payload.Transaction = other
	require.Equal(t, verification.TransactionSszProofMismatch, verification.VerifyPayload(proof, payload.Pack()))
}

func TestVerifyPayloadRejectsMutatedReceipt(t *testing.T) {
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)
	proof, payload := buildProof(t, w, 2)

	for i := range payload.Receipt {
		mutated := *payload
		mutated.Receipt = append([]byte(nil), payload.Receipt...)
		mutated.Receipt[i] ^= 0x01
		require.Equal(t, verification.ReceiptMismatch, verification.VerifyPayload(proof, mutated.Pack()), "byte %d", i)
	}
}

func TestVerifyPayloadRejectsBrokenTrieProof(t *testing.T) {
	w, err := fixture.Build(fixture.DefaultOptions())
	require.NoError(t, err)
	proof, payload := buildProof(t, w, 0)

	proof.ReceiptMptProof = proof.ReceiptMptProof[:0]
	require.Equal(t, verification.ReceiptMptProofMismatch, verification.VerifyPayload(proof, payload.Pack()))
}

func TestErrorCodeNames(t *testing.T) {
	require.Equal(t, "receipt mismatch", verification.ReceiptMismatch.Error())
	require.Equal(t, int8(8), int8(verification.ReceiptMismatch))
	require.Contains(t, verification.ErrorCode(42).Error(), "42")
}
