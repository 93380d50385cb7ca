package proofs

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/protolambda/ztyp/tree"
)

// merkleBranch returns the siblings of leaves[index] in a tree of the given
// depth; absent nodes are the zero hashes of their level.
func merkleBranch(leaves []tree.Root, index uint64, depth uint8, hFn tree.HashFn) []tree.Root {
	branch := make([]tree.Root, depth)
	level := leaves
	for d := uint8(0); d < depth; d++ {
		sibling := index ^ 1
		if sibling < uint64(len(level)) {
			branch[d] = level[sibling]
		} else {
			branch[d] = tree.ZeroHashes[d]
		}
		level = parentLevel(level, d, hFn)
		index >>= 1
	}
	return branch
}

// merkleize returns the root of leaves in a tree of the given depth.
func merkleize(leaves []tree.Root, depth uint8, hFn tree.HashFn) tree.Root {
	if len(leaves) == 0 {
		return tree.ZeroHashes[depth]
	}
	level := leaves
	for d := uint8(0); d < depth; d++ {
		level = parentLevel(level, d, hFn)
	}
	return level[0]
}

func parentLevel(level []tree.Root, d uint8, hFn tree.HashFn) []tree.Root {
	next := make([]tree.Root, (len(level)+1)/2)
	for i := range next {
		left := level[2*i]
		right := tree.ZeroHashes[d]
		if 2*i+1 < len(level) {
			right = level[2*i+1]
		}
		next[i] = hFn(left, right)
	}
	return next
}

func lengthRoot(length uint64) tree.Root {
	var root tree.Root
	binary.LittleEndian.PutUint64(root[:], length)
	return root
}

func uint64Root(v uint64) tree.Root {
	return lengthRoot(v)
}

func toHashes(roots []tree.Root) []common.Hash {
	out := make([]common.Hash, len(roots))
	for i, r := range roots {
		out[i] = common.Hash(r)
	}
	return out
}
