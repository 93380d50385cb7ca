// Package mmr implements the header accumulator shared by header stores and
// the verifier: a Merkle Mountain Range over HeaderDigest leaves.
//
// Peaks are perfect binary trees sized by the binary decomposition of the
// leaf count, largest first. The root bags the peaks from the right:
// root = merge(p0, merge(p1, ... merge(pn-1, pn))).
//
// A proof for a leaf lists, in order: the siblings inside its peak (bottom-up),
// the bagged root of all peaks to its right (if any), then every peak to its
// left from the nearest to the farthest.
package mmr

import (
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/protolambda/ztyp/tree"

	"github.com/kysee/forcerelay/types"
)

var (
	ErrEmpty           = errors.New("mmr is empty")
	ErrLeafOutOfRange  = errors.New("leaf index out of range")
	ErrProofMismatched = errors.New("mmr proof does not match root")
)

// Merge hashes two children into their parent digest.
func Merge(left, right types.HeaderDigest) types.HeaderDigest {
	root := tree.GetHashFn()(tree.Root(left.ChildrenHash), tree.Root(right.ChildrenHash))
	return types.HeaderDigest{ChildrenHash: common.Hash(root)}
}

// peak describes one mountain: its first leaf and its leaf count (a power of two).
type peak struct {
	start uint64
	size  uint64
}

func peaksOf(leafCount uint64) []peak {
	var peaks []peak
	var start uint64
	for remaining := leafCount; remaining > 0; {
		size := uint64(1) << (bits.Len64(remaining) - 1)
		peaks = append(peaks, peak{start: start, size: size})
		start += size
		remaining -= size
	}
	return peaks
}

func locate(peaks []peak, leafIndex uint64) int {
	for i, p := range peaks {
		if leafIndex < p.start+p.size {
			return i
		}
	}
	return -1
}

// MMR holds the leaves; nodes are recomputed on demand.
type MMR struct {
	leaves []types.HeaderDigest
}

func New(leaves ...types.HeaderDigest) *MMR {
	m := &MMR{}
	m.leaves = append(m.leaves, leaves...)
	return m
}

func (m *MMR) Push(leaf types.HeaderDigest) {
	m.leaves = append(m.leaves, leaf)
}

func (m *MMR) LeafCount() uint64 {
	return uint64(len(m.leaves))
}

func (m *MMR) peakRoot(p peak) types.HeaderDigest {
	level := make([]types.HeaderDigest, p.size)
	copy(level, m.leaves[p.start:p.start+p.size])
	for len(level) > 1 {
		next := make([]types.HeaderDigest, len(level)/2)
		for i := range next {
			next[i] = Merge(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

func bag(peaks []types.HeaderDigest) types.HeaderDigest {
	acc := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= 0; i-- {
		acc = Merge(peaks[i], acc)
	}
	return acc
}

func (m *MMR) Root() (types.HeaderDigest, error) {
	if len(m.leaves) == 0 {
		return types.HeaderDigest{}, ErrEmpty
	}
	peaks := peaksOf(m.LeafCount())
	roots := make([]types.HeaderDigest, len(peaks))
	for i, p := range peaks {
		roots[i] = m.peakRoot(p)
	}
	return bag(roots), nil
}

// GenProof returns the inclusion proof items for the leaf at leafIndex.
func (m *MMR) GenProof(leafIndex uint64) ([]types.HeaderDigest, error) {
	if leafIndex >= m.LeafCount() {
		return nil, errors.Wrapf(ErrLeafOutOfRange, "index %d, leaves %d", leafIndex, m.LeafCount())
	}
	peaks := peaksOf(m.LeafCount())
	k := locate(peaks, leafIndex)

	var proof []types.HeaderDigest
	p := peaks[k]
	level := make([]types.HeaderDigest, p.size)
	copy(level, m.leaves[p.start:p.start+p.size])
	index := leafIndex - p.start
	for len(level) > 1 {
		proof = append(proof, level[index^1])
		next := make([]types.HeaderDigest, len(level)/2)
		for i := range next {
			next[i] = Merge(level[2*i], level[2*i+1])
		}
		level = next
		index /= 2
	}

	if k+1 < len(peaks) {
		rhs := make([]types.HeaderDigest, 0, len(peaks)-k-1)
		for _, right := range peaks[k+1:] {
			rhs = append(rhs, m.peakRoot(right))
		}
		proof = append(proof, bag(rhs))
	}
	for i := k - 1; i >= 0; i-- {
		proof = append(proof, m.peakRoot(peaks[i]))
	}
	return proof, nil
}

// VerifyProof checks that leaf sits at leafIndex of an accumulator of leafCount
// leaves whose root is root.
func VerifyProof(root types.HeaderDigest, leafCount, leafIndex uint64, leaf types.HeaderDigest, proof []types.HeaderDigest) error {
	if leafIndex >= leafCount {
		return errors.Wrapf(ErrLeafOutOfRange, "index %d, leaves %d", leafIndex, leafCount)
	}
	peaks := peaksOf(leafCount)
	k := locate(peaks, leafIndex)
	p := peaks[k]

	height := bits.TrailingZeros64(p.size)
	expected := height + k
	if k+1 < len(peaks) {
		expected++
	}
	if len(proof) != expected {
		return errors.Wrapf(ErrProofMismatched, "proof has %d items, expect %d", len(proof), expected)
	}

	acc := leaf
	index := leafIndex - p.start
	for _, sibling := range proof[:height] {
		if index&1 == 0 {
			acc = Merge(acc, sibling)
		} else {
			acc = Merge(sibling, acc)
		}
		index >>= 1
	}
	rest := proof[height:]
	if k+1 < len(peaks) {
		acc = Merge(acc, rest[0])
		rest = rest[1:]
	}
	for _, left := range rest {
		acc = Merge(left, acc)
	}
	if acc != root {
		return ErrProofMismatched
	}
	return nil
}
