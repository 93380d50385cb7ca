package types

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	ckbtypes "github.com/nervosnetwork/ckb-sdk-go/v2/types"
	"github.com/nervosnetwork/ckb-sdk-go/v2/types/molecule"
	"github.com/pkg/errors"
)

// Field encodings use the ckb-sdk-go molecule primitives. The light client
// structs and the table layout are packed here.
// All numbers are little-endian; header words are 4 bytes.

const numberSize = 4

var ErrMolecule = errors.New("molecule")

func packNumber(n int) []byte {
	b := make([]byte, numberSize)
	binary.LittleEndian.PutUint32(b, uint32(n))
	return b
}

func unpackNumber(b []byte) int {
	return int(binary.LittleEndian.Uint32(b))
}

func packUint64(v uint64) []byte {
	return ckbtypes.PackUint64(v).AsSlice()
}

func unpackUint64(data []byte) (uint64, error) {
	v, err := molecule.Uint64FromSlice(data, false)
	if err != nil {
		return 0, errors.Wrap(ErrMolecule, err.Error())
	}
	return binary.LittleEndian.Uint64(v.RawData()), nil
}

func unpackHash(data []byte) (common.Hash, error) {
	v, err := molecule.Byte32FromSlice(data, false)
	if err != nil {
		return common.Hash{}, errors.Wrap(ErrMolecule, err.Error())
	}
	return common.BytesToHash(v.RawData()), nil
}

// PackBytes encodes b as fixvec<byte>.
func PackBytes(b []byte) []byte {
	return ckbtypes.PackBytes(b).AsSlice()
}

// UnpackBytes decodes a fixvec<byte>.
func UnpackBytes(data []byte) ([]byte, error) {
	v, err := molecule.BytesFromSlice(data, false)
	if err != nil {
		return nil, errors.Wrap(ErrMolecule, err.Error())
	}
	return v.RawData(), nil
}

func packHashes(hashes []common.Hash) []byte {
	builder := molecule.NewByte32VecBuilder()
	for i := range hashes {
		builder.Push(*molecule.Byte32FromSliceUnchecked(common.CopyBytes(hashes[i][:])))
	}
	v := builder.Build()
	return v.AsSlice()
}

func unpackHashes(data []byte) ([]common.Hash, error) {
	v, err := molecule.Byte32VecFromSlice(data, false)
	if err != nil {
		return nil, errors.Wrap(ErrMolecule, err.Error())
	}
	// the item count is a 32-bit word and its byte size can wrap
	count := (len(data) - numberSize) / HashSize
	if v.Len() != uint(count) {
		return nil, errors.Wrapf(ErrMolecule, "hash vector declares %d items in %d bytes", v.Len(), len(data))
	}
	out := make([]common.Hash, count)
	for i := range out {
		out[i] = common.BytesToHash(v.Get(uint(i)).RawData())
	}
	return out, nil
}

func packBytesVec(items [][]byte) []byte {
	return ckbtypes.PackBytesVec(items).AsSlice()
}

// unpackBytesVec decodes a dynvec<Bytes>, verifying every item.
func unpackBytesVec(data []byte) ([][]byte, error) {
	items, err := unpackDynamic(data)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(items))
	for i, item := range items {
		if out[i], err = UnpackBytes(item); err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
	}
	return out, nil
}

// packDynamic encodes the table layout: total size, one offset per field, fields.
func packDynamic(items [][]byte) []byte {
	headerSize := numberSize * (1 + len(items))
	total := headerSize
	for _, item := range items {
		total += len(item)
	}
	out := make([]byte, 0, total)
	out = append(out, packNumber(total)...)
	offset := headerSize
	for _, item := range items {
		out = append(out, packNumber(offset)...)
		offset += len(item)
	}
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

// unpackDynamic splits a table or dynvec. Every offset is checked before
// anything is sliced: offsets start at the header end, never decrease and
// never pass the total size.
func unpackDynamic(data []byte) ([][]byte, error) {
	if len(data) < numberSize {
		return nil, errors.Wrapf(ErrMolecule, "header too short: %d", len(data))
	}
	total := unpackNumber(data)
	if total != len(data) {
		return nil, errors.Wrapf(ErrMolecule, "total size %d does not match %d", total, len(data))
	}
	if total == numberSize {
		return nil, nil
	}
	if total < numberSize*2 {
		return nil, errors.Wrapf(ErrMolecule, "header too short: %d", total)
	}
	first := unpackNumber(data[numberSize:])
	if first%numberSize != 0 || first < numberSize*2 || first > total {
		return nil, errors.Wrapf(ErrMolecule, "invalid first offset %d", first)
	}
	count := first/numberSize - 1
	offsets := make([]int, count+1)
	prev := first
	for i := 0; i < count; i++ {
		offset := unpackNumber(data[numberSize*(i+1):])
		if offset < prev || offset > total {
			return nil, errors.Wrapf(ErrMolecule, "offset %d of item %d is out of [%d, %d]", offset, i, prev, total)
		}
		offsets[i] = offset
		prev = offset
	}
	offsets[count] = total
	items := make([][]byte, count)
	for i := 0; i < count; i++ {
		items[i] = data[offsets[i]:offsets[i+1]]
	}
	return items, nil
}

// UnpackTable splits a table into exactly fieldCount raw fields.
func UnpackTable(data []byte, fieldCount int) ([][]byte, error) {
	fields, err := unpackDynamic(data)
	if err != nil {
		return nil, err
	}
	if len(fields) != fieldCount {
		return nil, errors.Wrapf(ErrMolecule, "table has %d fields, expect %d", len(fields), fieldCount)
	}
	return fields, nil
}

func packTable(fields ...[]byte) []byte {
	return packDynamic(fields)
}
