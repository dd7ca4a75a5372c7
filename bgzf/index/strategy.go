// Copyright ©2015 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"github.com/mossbank/hts/bgzf"
)

// MergeStrategy reduces a sorted list of bgzf.Chunks into a smaller,
// typically non-overlapping, set.
type MergeStrategy func([]bgzf.Chunk) []bgzf.Chunk

var (
	// Identity leaves the []bgzf.Chunk unaltered.
	Identity MergeStrategy = identity

	// Adjacent merges contiguous or overlapping bgzf.Chunks.
	Adjacent MergeStrategy = mergeNeighbors(func(left, right bgzf.Chunk) bool {
		return vOffset(left.End) >= vOffset(right.Begin)
	})

	// Squash merges all bgzf.Chunks into a single bgzf.Chunk spanning
	// their full range.
	Squash MergeStrategy = squash
)

// CompressorStrategy returns a MergeStrategy that merges bgzf.Chunks whose
// BGZF block starts are separated by no more than near bytes in the
// compressed stream. This collapses chunks the underlying compressor
// placed close enough together that a seek between them would cost more
// than just reading through the gap.
func CompressorStrategy(near int64) MergeStrategy {
	return mergeNeighbors(func(left, right bgzf.Chunk) bool {
		return left.End.File+near >= right.Begin.File
	})
}

func identity(chunks []bgzf.Chunk) []bgzf.Chunk { return chunks }

// mergeNeighbors builds a MergeStrategy that walks a sorted chunk list once,
// folding each chunk into its predecessor whenever shouldMerge says the gap
// between them is small enough to ignore. Adjacent and CompressorStrategy
// differ only in that test, so they share this walk.
func mergeNeighbors(shouldMerge func(left, right bgzf.Chunk) bool) MergeStrategy {
	return func(chunks []bgzf.Chunk) []bgzf.Chunk {
		if len(chunks) == 0 {
			return nil
		}
		for c := 1; c < len(chunks); c++ {
			left := chunks[c-1]
			right := &chunks[c]
			if !shouldMerge(left, *right) {
				continue
			}
			right.Begin = left.Begin
			if vOffset(left.End) > vOffset(right.End) {
				right.End = left.End
			}
			chunks = append(chunks[:c-1], chunks[c:]...)
			c--
		}
		return chunks
	}
}

func squash(chunks []bgzf.Chunk) []bgzf.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	left := chunks[0].Begin
	right := chunks[0].End
	for _, c := range chunks[1:] {
		if vOffset(c.End) > vOffset(right) {
			right = c.End
		}
	}
	return []bgzf.Chunk{{Begin: left, End: right}}
}
