package ckbrpc

import (
	"bytes"
	"context"
	"encoding/binary"
	"strconv"
	"sync"

	"github.com/nervosnetwork/ckb-sdk-go/v2/indexer"
	"github.com/nervosnetwork/ckb-sdk-go/v2/types"
	"github.com/pkg/errors"
)

// MockClient is an in-memory indexer. Cells are returned in deployment order.
type MockClient struct {
	mu    sync.Mutex
	cells []*indexer.LiveCell
	nonce uint64
	err   error
	calls int
}

var _ Client = (*MockClient)(nil)

func NewMockClient() *MockClient {
	return &MockClient{}
}

// Deploy adds a live cell and returns its out point. Out points are
// derived from a counter so that test runs are reproducible.
func (m *MockClient) Deploy(lock, typeScript *types.Script, data []byte) *types.OutPoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nonce++
	var txHash types.Hash
	binary.BigEndian.PutUint64(txHash[24:], m.nonce)
	outPoint := &types.OutPoint{TxHash: txHash, Index: 0}
	m.cells = append(m.cells, &indexer.LiveCell{
		BlockNumber: m.nonce,
		OutPoint:    outPoint,
		Output: &types.CellOutput{
			Capacity: uint64(len(data)+200) * 100_000_000,
			Lock:     lock,
			Type:     typeScript,
		},
		OutputData: append([]byte(nil), data...),
	})
	return outPoint
}

// Consume removes the cell at outPoint, as if it had been spent.
func (m *MockClient) Consume(outPoint *types.OutPoint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, cell := range m.cells {
		if cell.OutPoint.TxHash == outPoint.TxHash && cell.OutPoint.Index == outPoint.Index {
			m.cells = append(m.cells[:i], m.cells[i+1:]...)
			return true
		}
	}
	return false
}

// Reverse flips the order cells are returned in.
func (m *MockClient) Reverse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, j := 0, len(m.cells)-1; i < j; i, j = i+1, j-1 {
		m.cells[i], m.cells[j] = m.cells[j], m.cells[i]
	}
}

// FailWith makes every following request return err; nil clears it.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func scriptMatches(want, got *types.Script, mode types.ScriptSearchMode) bool {
	if want == nil || got == nil {
		return false
	}
	if want.CodeHash != got.CodeHash || want.HashType != got.HashType {
		return false
	}
	if mode == types.ScriptSearchModeExact {
		return bytes.Equal(want.Args, got.Args)
	}
	return bytes.HasPrefix(got.Args, want.Args)
}

func (m *MockClient) FetchLiveCells(ctx context.Context, searchKey *indexer.SearchKey, limit uint64, cursor string) (*indexer.LiveCells, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if searchKey == nil || searchKey.Script == nil {
		return nil, errors.New("search key without script")
	}

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid cursor %q", cursor)
		}
		start = n
	}

	result := &indexer.LiveCells{LastCursor: cursor}
	for i := start; i < len(m.cells); i++ {
		if uint64(len(result.Objects)) >= limit {
			break
		}
		cell := m.cells[i]
		var script *types.Script
		if searchKey.ScriptType == types.ScriptTypeLock {
			script = cell.Output.Lock
		} else {
			script = cell.Output.Type
		}
		if scriptMatches(searchKey.Script, script, searchKey.ScriptSearchMode) {
			copied := *cell
			result.Objects = append(result.Objects, &copied)
		}
		result.LastCursor = strconv.Itoa(i + 1)
	}
	return result, nil
}
