package relayer

import (
	"bytes"
	"context"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	ckbtypes "github.com/nervosnetwork/ckb-sdk-go/v2/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kysee/forcerelay/proofs"
	"github.com/kysee/forcerelay/provers/ckbrpc"
	"github.com/kysee/forcerelay/provers/store"
	"github.com/kysee/forcerelay/types"
	"github.com/kysee/forcerelay/verification"
)

// BeaconBlock is a beacon block able to prove parts of its body.
type BeaconBlock interface {
	Slot() uint64
	Header() types.Header
	ReceiptsRoot() common.Hash
	Transaction(index int) ([]byte, error)
	GenerateTransactionProof(index int) ([]common.Hash, error)
	GenerateReceiptsRootProof() []common.Hash
}

var _ BeaconBlock = (*proofs.CachedBeaconBlock)(nil)

// LatestClient is the authoritative on-chain client and the cell holding it.
type LatestClient struct {
	Client  types.Client
	CellDep *ckbtypes.CellDep
}

// Assembler turns an Ethereum transaction into a CKB verification transaction.
type Assembler struct {
	rpc              ckbrpc.Client
	contractTypeArgs []byte
	binaryTypeArgs   []byte
	clientTypeArgs   types.ClientTypeArgs
	logger           zerolog.Logger
}

// NewAssembler creates a new Assembler for the light client deployed under
// contractTypeArgs and the verifier binary deployed under binaryTypeArgs
func NewAssembler(rpc ckbrpc.Client, contractTypeArgs, binaryTypeArgs []byte, clientTypeArgs types.ClientTypeArgs) *Assembler {
	return &Assembler{
		rpc:              rpc,
		contractTypeArgs: contractTypeArgs,
		binaryTypeArgs:   binaryTypeArgs,
		clientTypeArgs:   clientTypeArgs,
		logger:           log.With().Str("module", "assembler").Logger(),
	}
}

// ClientTypeScript is the type script shared by every cell of the client group.
func (a *Assembler) ClientTypeScript() *ckbtypes.Script {
	return LightClientTypeScript(a.contractTypeArgs, a.clientTypeArgs)
}

// FetchOnChainLatestClient resolves the client named by the group's ClientInfo.
// It returns nil when no light client is deployed.
func (a *Assembler) FetchOnChainLatestClient(ctx context.Context) (*LatestClient, error) {
	group, err := FetchClientGroup(ctx, a.rpc, a.ClientTypeScript(), a.clientTypeArgs)
	if err != nil || group == nil {
		return nil, err
	}

	var latest *LatestClient
	for _, cc := range group.Clients {
		if cc.Client.ID != group.Info.LastID {
			continue
		}
		if latest != nil {
			return nil, errors.Wrapf(ErrCorruption, "found duplicate client cells with id %d", cc.Client.ID)
		}
		latest = &LatestClient{Client: cc.Client, CellDep: cellDep(cc.Cell)}
	}
	if latest == nil {
		return nil, errors.Wrapf(ErrCorruption, "cannot find client cell with last_id %d", group.Info.LastID)
	}
	a.logger.Debug().
		Int("cells", len(group.Clients)+1).
		Stringer("info", group.Info).
		Stringer("client", latest.Client).
		Msg("resolved onchain client")
	return latest, nil
}

// BinaryCellDep locates the verifier binary; nil when it is not deployed.
func (a *Assembler) BinaryCellDep(ctx context.Context) (*ckbtypes.CellDep, error) {
	return SearchCellAsCellDep(ctx, a.rpc, MakeTypeIDScript(a.binaryTypeArgs))
}

// AssembleProof builds the proof and payload for tx and verifies both
// against client the way the on-chain verifier does.
func AssembleProof(
	client types.Client,
	consensus store.ConsensusStore,
	block BeaconBlock,
	tx *ethtypes.Transaction,
	receipts *proofs.Receipts,
) (*types.TransactionProof, *types.TransactionPayload, error) {
	slot := block.Slot()
	if slot < client.MinimalSlot || slot > client.MaximalSlot {
		return nil, nil, errors.Wrapf(ErrMisalignment, "block slot %d is out of workable range [%d, %d]",
			slot, client.MinimalSlot, client.MaximalSlot)
	}
	acc, err := consensus.AccumulatorView(client.MaximalSlot)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open header accumulator")
	}
	mmrProof, err := acc.GenerateProof(slot - client.MinimalSlot)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "generate header mmr proof for slot %d", slot)
	}

	index, ok := receipts.FindIndex(tx.Hash())
	if !ok {
		return nil, nil, errors.Wrapf(ErrNotFound, "cannot find receipt from receipts for tx %s", tx.Hash())
	}

	txProof, err := block.GenerateTransactionProof(index)
	if err != nil {
		return nil, nil, errors.Wrap(err, "generate transaction ssz proof")
	}
	receiptProof, err := receipts.GenerateProof(index)
	if err != nil {
		return nil, nil, errors.Wrap(err, "generate receipt mpt proof")
	}
	proof := &types.TransactionProof{
		Header:               block.Header(),
		ReceiptsRoot:         block.ReceiptsRoot(),
		TransactionIndex:     uint64(index),
		HeaderMmrProof:       mmrProof,
		TransactionSszProof:  txProof,
		ReceiptMptProof:      receiptProof,
		ReceiptsRootSszProof: block.GenerateReceiptsRootProof(),
	}
	if err := verification.VerifyTransactionProof(client, proof.Pack()); err != nil {
		return nil, nil, verifyError(StageProof, err)
	}

	beaconTx, err := block.Transaction(index)
	if err != nil {
		return nil, nil, err
	}
	executionTx, err := tx.MarshalBinary()
	if err != nil {
		return nil, nil, errors.Wrap(err, "encode execution tx")
	}
	if !bytes.Equal(beaconTx, executionTx) {
		return nil, nil, errors.Wrapf(ErrDivergence, "execution and beacon tx is different at index %d", index)
	}

	payload := &types.TransactionPayload{
		Transaction: beaconTx,
		Receipt:     receipts.EncodeIndex(index),
	}
	if err := verification.VerifyPayload(proof, payload.Pack()); err != nil {
		return nil, nil, verifyError(StagePayload, err)
	}
	return proof, payload, nil
}

// AssembleTx assembles and self-verifies the proof of tx, then packs it into
// a transaction skeleton depending on the verifier binary and the client cell.
func (a *Assembler) AssembleTx(
	client *LatestClient,
	binary *ckbtypes.CellDep,
	consensus store.ConsensusStore,
	block BeaconBlock,
	tx *ethtypes.Transaction,
	receipts *proofs.Receipts,
) (*ckbtypes.Transaction, error) {
	proof, payload, err := AssembleProof(client.Client, consensus, block, tx, receipts)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().
		Uint64("slot", proof.Header.Slot).
		Uint64("tx_index", proof.TransactionIndex).
		Int("mmr_proof", len(proof.HeaderMmrProof)).
		Int("mpt_proof", len(proof.ReceiptMptProof)).
		Msg("transaction proof verified")
	return AssemblePartialVerificationTransaction(proof, payload, binary, client.CellDep), nil
}
