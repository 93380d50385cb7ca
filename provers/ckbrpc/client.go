// Package ckbrpc is the slice of the CKB node and indexer RPC the relayer needs.
package ckbrpc

import (
	"context"

	"github.com/nervosnetwork/ckb-sdk-go/v2/indexer"
	"github.com/nervosnetwork/ckb-sdk-go/v2/rpc"
	"github.com/pkg/errors"
)

// Client fetches live cells from the CKB indexer.
type Client interface {
	FetchLiveCells(ctx context.Context, searchKey *indexer.SearchKey, limit uint64, cursor string) (*indexer.LiveCells, error)
}

// LiveClient forwards to a CKB node with the indexer module enabled.
type LiveClient struct {
	rpc rpc.Client
}

var _ Client = (*LiveClient)(nil)

func Dial(url string) (*LiveClient, error) {
	c, err := rpc.Dial(url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial ckb rpc %s", url)
	}
	return &LiveClient{rpc: c}, nil
}

func NewLiveClient(c rpc.Client) *LiveClient {
	return &LiveClient{rpc: c}
}

func (c *LiveClient) FetchLiveCells(ctx context.Context, searchKey *indexer.SearchKey, limit uint64, cursor string) (*indexer.LiveCells, error) {
	cells, err := c.rpc.GetCells(ctx, searchKey, indexer.SearchOrderAsc, limit, cursor)
	if err != nil {
		return nil, errors.Wrap(err, "get_cells")
	}
	return cells, nil
}

func (c *LiveClient) Close() {
	c.rpc.Close()
}
