package types

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"
)

const (
	HashSize           = 32
	HeaderDigestSize   = HashSize
	HeaderSize         = 8 + 8 + 3*HashSize
	ClientSize         = 1 + 8 + 8 + HashSize + HeaderDigestSize
	ClientInfoSize     = 2
	ClientTypeArgsSize = HashSize + 1

	transactionProofFields   = 7
	transactionPayloadFields = 2
)

// HeaderDigest is one node of the header accumulator.
type HeaderDigest struct {
	ChildrenHash common.Hash `json:"children_hash"`
}

func (d HeaderDigest) Pack() []byte {
	return common.CopyBytes(d.ChildrenHash[:])
}

// Header mirrors the SSZ BeaconBlockHeader.
type Header struct {
	Slot          uint64      `json:"slot"`
	ProposerIndex uint64      `json:"proposer_index"`
	ParentRoot    common.Hash `json:"parent_root"`
	StateRoot     common.Hash `json:"state_root"`
	BodyRoot      common.Hash `json:"body_root"`
}

// HeaderFromBeacon converts a zrnt beacon header.
func HeaderFromBeacon(h *zrntcommon.BeaconBlockHeader) Header {
	return Header{
		Slot:          uint64(h.Slot),
		ProposerIndex: uint64(h.ProposerIndex),
		ParentRoot:    common.Hash(h.ParentRoot),
		StateRoot:     common.Hash(h.StateRoot),
		BodyRoot:      common.Hash(h.BodyRoot),
	}
}

func (h Header) Beacon() *zrntcommon.BeaconBlockHeader {
	return &zrntcommon.BeaconBlockHeader{
		Slot:          zrntcommon.Slot(h.Slot),
		ProposerIndex: zrntcommon.ValidatorIndex(h.ProposerIndex),
		ParentRoot:    zrntcommon.Root(h.ParentRoot),
		StateRoot:     zrntcommon.Root(h.StateRoot),
		BodyRoot:      zrntcommon.Root(h.BodyRoot),
	}
}

// Root is the SSZ hash tree root of the header.
func (h Header) Root() common.Hash {
	return common.Hash(h.Beacon().HashTreeRoot(tree.GetHashFn()))
}

// Digest is the accumulator leaf committed for this header.
func (h Header) Digest() HeaderDigest {
	return HeaderDigest{ChildrenHash: h.Root()}
}

func (h Header) Pack() []byte {
	out := make([]byte, 0, HeaderSize)
	out = append(out, packUint64(h.Slot)...)
	out = append(out, packUint64(h.ProposerIndex)...)
	out = append(out, h.ParentRoot[:]...)
	out = append(out, h.StateRoot[:]...)
	return append(out, h.BodyRoot[:]...)
}

func DecodeHeader(data []byte) (Header, error) {
	if len(data) != HeaderSize {
		return Header{}, errors.Wrapf(ErrMolecule, "header size %d, expect %d", len(data), HeaderSize)
	}
	return Header{
		Slot:          binary.LittleEndian.Uint64(data[0:8]),
		ProposerIndex: binary.LittleEndian.Uint64(data[8:16]),
		ParentRoot:    common.BytesToHash(data[16:48]),
		StateRoot:     common.BytesToHash(data[48:80]),
		BodyRoot:      common.BytesToHash(data[80:112]),
	}, nil
}

// Client is the on-chain light client record: the header window it vouches for.
type Client struct {
	ID                 uint8        `json:"id"`
	MinimalSlot        uint64       `json:"minimal_slot"`
	MaximalSlot        uint64       `json:"maximal_slot"`
	TipValidHeaderRoot common.Hash  `json:"tip_valid_header_root"`
	HeadersMmrRoot     HeaderDigest `json:"headers_mmr_root"`
}

func (c Client) Pack() []byte {
	out := make([]byte, 0, ClientSize)
	out = append(out, c.ID)
	out = append(out, packUint64(c.MinimalSlot)...)
	out = append(out, packUint64(c.MaximalSlot)...)
	out = append(out, c.TipValidHeaderRoot[:]...)
	return append(out, c.HeadersMmrRoot.Pack()...)
}

// DecodeClient strictly verifies and decodes a packed Client.
func DecodeClient(data []byte) (Client, error) {
	if len(data) != ClientSize {
		return Client{}, errors.Wrapf(ErrMolecule, "client size %d, expect %d", len(data), ClientSize)
	}
	return Client{
		ID:                 data[0],
		MinimalSlot:        binary.LittleEndian.Uint64(data[1:9]),
		MaximalSlot:        binary.LittleEndian.Uint64(data[9:17]),
		TipValidHeaderRoot: common.BytesToHash(data[17:49]),
		HeadersMmrRoot:     HeaderDigest{ChildrenHash: common.BytesToHash(data[49:81])},
	}, nil
}

// HeadersCount is the number of accumulator leaves the client commits to.
func (c Client) HeadersCount() uint64 {
	return c.MaximalSlot - c.MinimalSlot + 1
}

func (c Client) String() string {
	return fmt.Sprintf("Client{id: %d, slots: [%d, %d], tip: %s, mmr_root: %s}",
		c.ID, c.MinimalSlot, c.MaximalSlot, c.TipValidHeaderRoot.Hex(), c.HeadersMmrRoot.ChildrenHash.Hex())
}

// ClientInfo names the authoritative client among the cells of one group.
type ClientInfo struct {
	LastID              uint8 `json:"last_id"`
	MinimalHeadersCount uint8 `json:"minimal_headers_count"`
}

func (i ClientInfo) Pack() []byte {
	return []byte{i.LastID, i.MinimalHeadersCount}
}

func DecodeClientInfo(data []byte) (ClientInfo, error) {
	if len(data) != ClientInfoSize {
		return ClientInfo{}, errors.Wrapf(ErrMolecule, "client info size %d, expect %d", len(data), ClientInfoSize)
	}
	return ClientInfo{LastID: data[0], MinimalHeadersCount: data[1]}, nil
}

func (i ClientInfo) String() string {
	return fmt.Sprintf("ClientInfo{last_id: %d, minimal_headers_count: %d}", i.LastID, i.MinimalHeadersCount)
}

// ClientTypeArgs are the args of the light client type script.
type ClientTypeArgs struct {
	TypeID     common.Hash `json:"type_id"`
	CellsCount uint8       `json:"cells_count"`
}

func (a ClientTypeArgs) Pack() []byte {
	out := make([]byte, 0, ClientTypeArgsSize)
	out = append(out, a.TypeID[:]...)
	return append(out, a.CellsCount)
}

func DecodeClientTypeArgs(data []byte) (ClientTypeArgs, error) {
	if len(data) != ClientTypeArgsSize {
		return ClientTypeArgs{}, errors.Wrapf(ErrMolecule, "client type args size %d, expect %d", len(data), ClientTypeArgsSize)
	}
	return ClientTypeArgs{TypeID: common.BytesToHash(data[:HashSize]), CellsCount: data[HashSize]}, nil
}

// TransactionProof is the composite proof checked by the verifier script.
type TransactionProof struct {
	Header               Header
	ReceiptsRoot         common.Hash
	TransactionIndex     uint64
	HeaderMmrProof       []HeaderDigest
	TransactionSszProof  []common.Hash
	ReceiptMptProof      [][]byte
	ReceiptsRootSszProof []common.Hash
}

func (p *TransactionProof) Pack() []byte {
	mmrProof := make([]common.Hash, len(p.HeaderMmrProof))
	for i, d := range p.HeaderMmrProof {
		mmrProof[i] = d.ChildrenHash
	}
	return packTable(
		p.Header.Pack(),
		common.CopyBytes(p.ReceiptsRoot[:]),
		packUint64(p.TransactionIndex),
		packHashes(mmrProof),
		packHashes(p.TransactionSszProof),
		packBytesVec(p.ReceiptMptProof),
		packHashes(p.ReceiptsRootSszProof),
	)
}

// DecodeTransactionProof strictly verifies and decodes a packed TransactionProof.
func DecodeTransactionProof(data []byte) (*TransactionProof, error) {
	fields, err := UnpackTable(data, transactionProofFields)
	if err != nil {
		return nil, errors.Wrap(err, "transaction proof")
	}
	header, err := DecodeHeader(fields[0])
	if err != nil {
		return nil, err
	}
	receiptsRoot, err := unpackHash(fields[1])
	if err != nil {
		return nil, errors.Wrap(err, "receipts root")
	}
	index, err := unpackUint64(fields[2])
	if err != nil {
		return nil, errors.Wrap(err, "transaction index")
	}
	mmrProof, err := unpackHashes(fields[3])
	if err != nil {
		return nil, errors.Wrap(err, "header mmr proof")
	}
	digests := make([]HeaderDigest, len(mmrProof))
	for i, h := range mmrProof {
		digests[i] = HeaderDigest{ChildrenHash: h}
	}
	txProof, err := unpackHashes(fields[4])
	if err != nil {
		return nil, errors.Wrap(err, "transaction ssz proof")
	}
	nodes, err := unpackBytesVec(fields[5])
	if err != nil {
		return nil, errors.Wrap(err, "receipt mpt proof")
	}
	receiptsRootProof, err := unpackHashes(fields[6])
	if err != nil {
		return nil, errors.Wrap(err, "receipts root ssz proof")
	}
	return &TransactionProof{
		Header:               header,
		ReceiptsRoot:         receiptsRoot,
		TransactionIndex:     index,
		HeaderMmrProof:       digests,
		TransactionSszProof:  txProof,
		ReceiptMptProof:      nodes,
		ReceiptsRootSszProof: receiptsRootProof,
	}, nil
}

// TransactionPayload carries the facts a TransactionProof attests to.
type TransactionPayload struct {
	Transaction []byte
	Receipt     []byte
}

func (p *TransactionPayload) Pack() []byte {
	return packTable(PackBytes(p.Transaction), PackBytes(p.Receipt))
}

func DecodeTransactionPayload(data []byte) (*TransactionPayload, error) {
	fields, err := UnpackTable(data, transactionPayloadFields)
	if err != nil {
		return nil, errors.Wrap(err, "transaction payload")
	}
	tx, err := UnpackBytes(fields[0])
	if err != nil {
		return nil, errors.Wrap(err, "transaction")
	}
	receipt, err := UnpackBytes(fields[1])
	if err != nil {
		return nil, errors.Wrap(err, "receipt")
	}
	return &TransactionPayload{Transaction: tx, Receipt: receipt}, nil
}
