package relayer

import (
	"context"

	"github.com/nervosnetwork/ckb-sdk-go/v2/indexer"
	ckbtypes "github.com/nervosnetwork/ckb-sdk-go/v2/types"
	"github.com/pkg/errors"

	"github.com/kysee/forcerelay/provers/ckbrpc"
	"github.com/kysee/forcerelay/types"
)

// typeIDCodeHash is the code hash of the built-in TYPE_ID script ("TYPE_ID" in ascii).
var typeIDCodeHash = ckbtypes.HexToHash("0x00000000000000000000000000000000000000000000000000545950455f4944")

// MakeTypeIDScript builds the type-id type script carrying args.
func MakeTypeIDScript(args []byte) *ckbtypes.Script {
	return &ckbtypes.Script{
		CodeHash: typeIDCodeHash,
		HashType: ckbtypes.HashTypeType,
		Args:     append([]byte(nil), args...),
	}
}

// LightClientTypeScript is the type script guarding the cells of one client group.
func LightClientTypeScript(contractTypeArgs []byte, args types.ClientTypeArgs) *ckbtypes.Script {
	return &ckbtypes.Script{
		CodeHash: MakeTypeIDScript(contractTypeArgs).Hash(),
		HashType: ckbtypes.HashTypeType,
		Args:     args.Pack(),
	}
}

// SearchCell returns the first live cell under typeScript, or nil.
func SearchCell(ctx context.Context, rpc ckbrpc.Client, typeScript *ckbtypes.Script) (*indexer.LiveCell, error) {
	cells, err := SearchCells(ctx, rpc, typeScript, ckbtypes.ScriptTypeType, 1)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, nil
	}
	return cells[0], nil
}

// SearchCells returns up to limit live cells whose script of the given kind matches exactly.
func SearchCells(ctx context.Context, rpc ckbrpc.Client, script *ckbtypes.Script, kind ckbtypes.ScriptType, limit uint64) ([]*indexer.LiveCell, error) {
	searchKey := &indexer.SearchKey{
		Script:           script,
		ScriptType:       kind,
		ScriptSearchMode: ckbtypes.ScriptSearchModeExact,
	}
	cells, err := rpc.FetchLiveCells(ctx, searchKey, limit, "")
	if err != nil {
		return nil, errors.Wrap(err, "fetch live cells")
	}
	return cells.Objects, nil
}

// SearchCellAsCellDep wraps the first live cell under typeScript as a code dependency.
func SearchCellAsCellDep(ctx context.Context, rpc ckbrpc.Client, typeScript *ckbtypes.Script) (*ckbtypes.CellDep, error) {
	cell, err := SearchCell(ctx, rpc, typeScript)
	if err != nil || cell == nil {
		return nil, err
	}
	return cellDep(cell), nil
}

func cellDep(cell *indexer.LiveCell) *ckbtypes.CellDep {
	outPoint := *cell.OutPoint
	return &ckbtypes.CellDep{OutPoint: &outPoint, DepType: ckbtypes.DepTypeCode}
}

// ClientCell is a live cell classified as a light client record.
type ClientCell struct {
	Cell   *indexer.LiveCell
	Client types.Client
}

// ClientGroup is the classified content of one light client type script.
type ClientGroup struct {
	Clients  []ClientCell
	Info     types.ClientInfo
	InfoCell *indexer.LiveCell
}

// FetchClientGroup loads every cell of the client group and classifies it.
// A nil group means no light client has been deployed.
func FetchClientGroup(ctx context.Context, rpc ckbrpc.Client, typeScript *ckbtypes.Script, args types.ClientTypeArgs) (*ClientGroup, error) {
	// one extra so that a surplus cell is reported instead of truncated
	cells, err := SearchCells(ctx, rpc, typeScript, ckbtypes.ScriptTypeType, uint64(args.CellsCount)+1)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, nil
	}
	if len(cells) != int(args.CellsCount) {
		return nil, errors.Wrapf(ErrCorruption, "fetched client cells count not match: expect %d, actual %d",
			args.CellsCount, len(cells))
	}

	group := &ClientGroup{}
	for _, cell := range cells {
		// the data carries no kind tag: probe Client first, then ClientInfo
		if client, err := types.DecodeClient(cell.OutputData); err == nil {
			group.Clients = append(group.Clients, ClientCell{Cell: cell, Client: client})
			continue
		}
		info, err := types.DecodeClientInfo(cell.OutputData)
		if err != nil {
			return nil, errors.Wrapf(ErrCorruption, "invalid client cell data 0x%x at 0x%x#%d",
				cell.OutputData, cell.OutPoint.TxHash[:], cell.OutPoint.Index)
		}
		if group.InfoCell != nil {
			return nil, errors.Wrapf(ErrCorruption, "found duplicate client info cell: %s and %s",
				group.Info, info)
		}
		group.Info = info
		group.InfoCell = cell
	}
	if group.InfoCell == nil {
		return nil, errors.Wrap(ErrCorruption, "client info cell not found")
	}
	return group, nil
}
