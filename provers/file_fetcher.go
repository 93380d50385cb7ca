package relayer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	cfgtypes "github.com/kysee/forcerelay/provers/types"
)

// FileFetcher implements Fetcher by reading JSON files under Dir, laid out as
// blocks/{slot}.json and headers/{slot}.json. On a miss it asks Upstream, if
// set, and stores the answer.
type FileFetcher struct {
	Dir      string
	Upstream cfgtypes.Fetcher
}

var _ cfgtypes.Fetcher = (*FileFetcher)(nil)

// NewFileFetcher creates a new FileFetcher rooted at dir
func NewFileFetcher(dir string, upstream cfgtypes.Fetcher) *FileFetcher {
	return &FileFetcher{Dir: dir, Upstream: upstream}
}

func (f *FileFetcher) path(kind string, slot uint64) string {
	return filepath.Join(f.Dir, kind, strconv.FormatUint(slot, 10)+".json")
}

func (f *FileFetcher) load(path string, out interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to read file %s", path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, errors.Wrapf(err, "failed to parse JSON %s", path)
	}
	return true, nil
}

func (f *FileFetcher) store(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (f *FileFetcher) Block(ctx context.Context, slot uint64) (*cfgtypes.BlockAPIResponse, error) {
	path := f.path("blocks", slot)
	var block cfgtypes.BlockAPIResponse
	ok, err := f.load(path, &block)
	if err != nil {
		return nil, err
	}
	if ok {
		return &block, nil
	}
	if f.Upstream == nil {
		return nil, errors.Wrapf(ErrNotFound, "no block file %s", path)
	}
	fetched, err := f.Upstream.Block(ctx, slot)
	if err != nil {
		return nil, err
	}
	if err := f.store(path, fetched); err != nil {
		return nil, errors.Wrapf(err, "failed to cache block %d", slot)
	}
	return fetched, nil
}

func (f *FileFetcher) Header(ctx context.Context, slot uint64) (*cfgtypes.HeaderAPIResponse, error) {
	path := f.path("headers", slot)
	var header cfgtypes.HeaderAPIResponse
	ok, err := f.load(path, &header)
	if err != nil {
		return nil, err
	}
	if ok {
		return &header, nil
	}
	if f.Upstream == nil {
		return nil, errors.Wrapf(ErrNotFound, "no header file %s", path)
	}
	fetched, err := f.Upstream.Header(ctx, slot)
	if err != nil {
		return nil, err
	}
	if err := f.store(path, fetched); err != nil {
		return nil, errors.Wrapf(err, "failed to cache header %d", slot)
	}
	return fetched, nil
}
