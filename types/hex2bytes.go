package types

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

func HexToBytes(hexStr string) ([]byte, error) {
	hexStr = strings.TrimPrefix(strings.TrimSpace(hexStr), "0x")
	if len(hexStr)%2 != 0 {
		return nil, errors.Errorf("odd length hex string: %q", hexStr)
	}
	return hex.DecodeString(hexStr)
}

// HexToHash decodes a 0x-prefixed 32 byte hex string.
func HexToHash(hexStr string) (common.Hash, error) {
	bz, err := HexToBytes(hexStr)
	if err != nil {
		return common.Hash{}, err
	}
	if len(bz) != HashSize {
		return common.Hash{}, errors.Errorf("hash must be %d bytes, got %d", HashSize, len(bz))
	}
	return common.BytesToHash(bz), nil
}

// HexBytes renders as a 0x-prefixed hex string in JSON and text configs.
type HexBytes []byte

func (hb HexBytes) String() string {
	return "0x" + hex.EncodeToString(hb)
}

func (hb HexBytes) MarshalText() ([]byte, error) {
	return []byte(hb.String()), nil
}

func (hb *HexBytes) UnmarshalText(text []byte) error {
	bz, err := HexToBytes(string(text))
	if err != nil {
		return err
	}
	*hb = bz
	return nil
}
