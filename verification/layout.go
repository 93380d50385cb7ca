package verification

// SSZ layout of a Capella beacon block body, as committed by header.body_root.
const (
	BodyDepth             = 4 // 11 fields
	ExecutionPayloadIndex = 9

	PayloadDepth      = 4 // 15 fields
	ReceiptsRootIndex = 3
	TransactionsIndex = 13

	TransactionsDepth = 20 // MAX_TRANSACTIONS_PER_PAYLOAD = 2^20
)

// ReceiptsRootGindex is the generalized index of
// body.execution_payload.receipts_root under the body root.
func ReceiptsRootGindex() uint64 {
	g := uint64(1)
	g = g<<BodyDepth | ExecutionPayloadIndex
	return g<<PayloadDepth | ReceiptsRootIndex
}

// TransactionGindex is the generalized index of
// body.execution_payload.transactions[index] under the body root.
func TransactionGindex(index uint64) uint64 {
	g := uint64(1)
	g = g<<BodyDepth | ExecutionPayloadIndex
	g = g<<PayloadDepth | TransactionsIndex
	g = g << 1 // list data, left of the length mix-in
	return g<<TransactionsDepth | index
}

// TransactionProofDepth is the number of branch items in a transaction proof.
const TransactionProofDepth = TransactionsDepth + 1 + PayloadDepth + BodyDepth

// ReceiptsRootProofDepth is the number of branch items in a receipts root proof.
const ReceiptsRootProofDepth = PayloadDepth + BodyDepth
