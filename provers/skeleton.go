package relayer

import (
	ckbtypes "github.com/nervosnetwork/ckb-sdk-go/v2/types"

	"github.com/kysee/forcerelay/types"
)

// AssemblePartialVerificationTransaction packs proof and payload into the
// single witness of a transaction that still lacks inputs, outputs and fee.
// The proof goes to input_type and the payload to output_type.
func AssemblePartialVerificationTransaction(
	proof *types.TransactionProof,
	payload *types.TransactionPayload,
	cellDeps ...*ckbtypes.CellDep,
) *ckbtypes.Transaction {
	witness := &ckbtypes.WitnessArgs{
		InputType:  proof.Pack(),
		OutputType: payload.Pack(),
	}
	deps := make([]*ckbtypes.CellDep, 0, len(cellDeps))
	for _, dep := range cellDeps {
		outPoint := *dep.OutPoint
		deps = append(deps, &ckbtypes.CellDep{OutPoint: &outPoint, DepType: dep.DepType})
	}
	return &ckbtypes.Transaction{
		Version:     0,
		CellDeps:    deps,
		HeaderDeps:  []ckbtypes.Hash{},
		Inputs:      []*ckbtypes.CellInput{},
		Outputs:     []*ckbtypes.CellOutput{},
		OutputsData: [][]byte{},
		Witnesses:   [][]byte{witness.Serialize()},
	}
}
