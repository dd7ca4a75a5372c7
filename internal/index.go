// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package internal holds the binning-index builder shared by the BAI file
// codec. It is internal because the binning scheme and Index layout are
// wire-format implementation detail, not a public API surface.
package internal

import (
	"errors"
	"sort"

	"github.com/mossbank/hts/bgzf"
	"github.com/mossbank/hts/bgzf/index"
)

const (
	// TileWidth is the width in reference bases of a linear-index tile.
	TileWidth = 0x4000

	// StatsDummyBin is the bin number reserved for per-reference mapped
	// and unmapped read counts.
	StatsDummyBin = 0x924a
)

// Index is a coordinate-based binning index, the in-memory model that the
// BAI file format serializes.
type Index struct {
	Refs       []RefIndex
	Unmapped   *uint64
	IsSorted   bool
	LastRecord int
}

// RefIndex is the index of a single reference sequence.
type RefIndex struct {
	Bins      []Bin
	Stats     *ReferenceStats
	Intervals []bgzf.Offset
}

// Bin is a single binning-index bin and its associated chunks.
type Bin struct {
	Bin    uint32
	Chunks []bgzf.Chunk
}

// ReferenceStats holds mapped/unmapped counts for one reference.
type ReferenceStats struct {
	Chunk    bgzf.Chunk
	Mapped   uint64
	Unmapped uint64
}

// Record is the minimal view of an alignment record the builder needs.
type Record interface {
	RefID() int
	Start() int
	End() int
}

// Add records r, located at chunk c in the BGZF stream, under bin. Records
// must be added in increasing (RefID, Start) order; placed/mapped classify
// whether the record is aligned to a reference and whether it is itself
// mapped, per the FLAG semantics in the caller's record type.
func (i *Index) Add(r Record, bin uint32, c bgzf.Chunk, placed, mapped bool) error {
	if !IsValidIndexPos(r.Start()) || !IsValidIndexPos(r.End()) {
		return errors.New("index: attempt to add record outside indexable range")
	}

	if i.Unmapped == nil {
		i.Unmapped = new(uint64)
	}
	if !placed {
		*i.Unmapped++
		return nil
	}

	rid := r.RefID()
	if rid < len(i.Refs)-1 {
		return errors.New("index: attempt to add record out of reference ID sort order")
	}
	if rid == len(i.Refs) {
		i.Refs = append(i.Refs, RefIndex{})
		i.LastRecord = 0
	} else if rid > len(i.Refs) {
		refs := make([]RefIndex, rid+1)
		copy(refs, i.Refs)
		i.Refs = refs
		i.LastRecord = 0
	}
	ref := &i.Refs[rid]

	var newBin bool
	ref.Bins, newBin = placeChunk(ref.Bins, bin, c)
	if newBin {
		i.IsSorted = false
	}

	if r.Start() < i.LastRecord {
		return errors.New("index: attempt to add record out of position sort order")
	}
	i.LastRecord = r.Start()
	ref.Intervals = backfillIntervals(ref.Intervals, r.Start()/TileWidth, r.End()/TileWidth, c.Begin)

	if ref.Stats == nil {
		ref.Stats = &ReferenceStats{Chunk: c}
	} else {
		ref.Stats.Chunk.End = c.End
	}
	if mapped {
		ref.Stats.Mapped++
	} else {
		ref.Stats.Unmapped++
	}

	return nil
}

// Chunks returns the chunks of the indexed BGZF stream that may hold
// records overlapping [beg, end) on reference rid.
func (i *Index) Chunks(rid, beg, end int) ([]bgzf.Chunk, error) {
	if rid < 0 || rid >= len(i.Refs) {
		return nil, index.ErrNoReference
	}
	i.sort()
	ref := i.Refs[rid]

	iv := beg / TileWidth
	if iv >= len(ref.Intervals) {
		return nil, index.ErrInvalid
	}

	var chunks []bgzf.Chunk
	for _, b := range OverlappingBinsFor(beg, end) {
		c := sort.Search(len(ref.Bins), func(i int) bool { return ref.Bins[i].Bin >= b })
		if c < len(ref.Bins) && ref.Bins[c].Bin == b {
			for _, chunk := range ref.Bins[c].Chunks {
				chunkEndOffset := vOffset(chunk.End)
				haveNonZero := false
				for j, tile := range ref.Intervals[iv:] {
					if haveNonZero && isZero(tile) {
						continue
					}
					haveNonZero = true
					tbeg := (j + iv) * TileWidth
					tend := tbeg + TileWidth
					if tend >= beg && tbeg <= end && chunkEndOffset > vOffset(tile) {
						chunks = append(chunks, chunk)
						break
					}
				}
			}
		}
	}

	if !sort.IsSorted(byBeginOffset(chunks)) {
		sort.Sort(byBeginOffset(chunks))
	}

	return chunks, nil
}

func (i *Index) sort() {
	if !i.IsSorted {
		for _, ref := range i.Refs {
			sort.Sort(byBinNumber(ref.Bins))
			for _, bin := range ref.Bins {
				sort.Sort(byBeginOffset(bin.Chunks))
			}
			sort.Sort(byVirtOffset(ref.Intervals))
		}
		i.IsSorted = true
	}
}

// MergeChunks applies s to every bin's chunk list in the index.
func (i *Index) MergeChunks(s func([]bgzf.Chunk) []bgzf.Chunk) {
	if s == nil {
		return
	}
	for _, ref := range i.Refs {
		for b, bin := range ref.Bins {
			if !sort.IsSorted(byBeginOffset(bin.Chunks)) {
				sort.Sort(byBeginOffset(bin.Chunks))
			}
			ref.Bins[b].Chunks = s(bin.Chunks)
			if !sort.IsSorted(byBeginOffset(bin.Chunks)) {
				sort.Sort(byBeginOffset(bin.Chunks))
			}
		}
	}
}

const (
	indexWordBits = 29
	nextBinShift  = 3
)

// IsValidIndexPos reports whether i is a valid 0-based BAM/SAM coordinate,
// including the -1 sentinel used for unplaced records.
func IsValidIndexPos(i int) bool { return -1 <= i && i <= (1<<indexWordBits-1)-1 }

const (
	level0 = uint32(((1 << (iota * nextBinShift)) - 1) / 7)
	level1
	level2
	level3
	level4
	level5
)

const (
	level0Shift = indexWordBits - (iota * nextBinShift)
	level1Shift
	level2Shift
	level3Shift
	level4Shift
	level5Shift
)

// BinFor returns the bin number for the interval [beg, end) (0-based,
// half-open), per the UCSC binning scheme used by BAM/BAI.
func BinFor(beg, end int) uint32 {
	end--
	switch {
	case beg>>level5Shift == end>>level5Shift:
		return level5 + uint32(beg>>level5Shift)
	case beg>>level4Shift == end>>level4Shift:
		return level4 + uint32(beg>>level4Shift)
	case beg>>level3Shift == end>>level3Shift:
		return level3 + uint32(beg>>level3Shift)
	case beg>>level2Shift == end>>level2Shift:
		return level2 + uint32(beg>>level2Shift)
	case beg>>level1Shift == end>>level1Shift:
		return level1 + uint32(beg>>level1Shift)
	}
	return level0
}

// OverlappingBinsFor returns every bin number that could hold a record
// overlapping [beg, end) (0-based, half-open).
func OverlappingBinsFor(beg, end int) []uint32 {
	end--
	list := []uint32{level0}
	for _, r := range []struct {
		offset, shift uint32
	}{
		{level1, level1Shift},
		{level2, level2Shift},
		{level3, level3Shift},
		{level4, level4Shift},
		{level5, level5Shift},
	} {
		for k := r.offset + uint32(beg>>r.shift); k <= r.offset+uint32(end>>r.shift); k++ {
			list = append(list, k)
		}
	}
	return list
}

// placeChunk inserts c into bins under the given bin number. If bins
// already has a chunk in that bin whose End overlaps c's Begin, c is
// coalesced into it in place; otherwise c starts a new chunk in that bin,
// or a new bin entirely. The returned bool reports whether a new bin was
// appended, which is the only case that disturbs bin-number ordering.
func placeChunk(bins []Bin, bin uint32, c bgzf.Chunk) ([]Bin, bool) {
	for bi, b := range bins {
		if b.Bin != bin {
			continue
		}
		for j, chunk := range bins[bi].Chunks {
			if vOffset(chunk.End) > vOffset(c.Begin) {
				bins[bi].Chunks[j].End = c.End
				return bins, false
			}
		}
		bins[bi].Chunks = append(bins[bi].Chunks, c)
		return bins, false
	}
	return append(bins, Bin{Bin: bin, Chunks: []bgzf.Chunk{c}}), true
}

// backfillIntervals extends intvs, the linear index of TileWidth-wide
// windows over a reference, so that every tile touched by a record
// spanning tiles [biv, eiv) holds a virtual offset a caller can seek to.
// Tiles already present are left untouched; only the newly reachable tail
// is filled in, all with the same begin offset, since any record landing
// in those tiles for the first time must start at or after it.
func backfillIntervals(intvs []bgzf.Offset, biv, eiv int, begin bgzf.Offset) []bgzf.Offset {
	if eiv == len(intvs) {
		if eiv > biv {
			panic("index: unexpected alignment length")
		}
		return append(intvs, begin)
	}
	if eiv <= len(intvs) {
		return intvs
	}
	grown := make([]bgzf.Offset, eiv)
	copy(grown, intvs)
	if len(intvs) > biv {
		biv = len(intvs)
	}
	for iv := range grown[biv:eiv] {
		if !isZero(grown[iv+biv]) {
			panic("index: unexpected non-zero offset")
		}
		grown[iv+biv] = begin
	}
	return grown
}

func makeOffset(vOff uint64) bgzf.Offset {
	return bgzf.Offset{
		File:  int64(vOff >> 16),
		Block: uint16(vOff),
	}
}

func isZero(o bgzf.Offset) bool {
	return o == bgzf.Offset{}
}

func vOffset(o bgzf.Offset) int64 {
	return o.File<<16 | int64(o.Block)
}

type byBinNumber []Bin

func (b byBinNumber) Len() int           { return len(b) }
func (b byBinNumber) Less(i, j int) bool { return b[i].Bin < b[j].Bin }
func (b byBinNumber) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

type byBeginOffset []bgzf.Chunk

func (c byBeginOffset) Len() int           { return len(c) }
func (c byBeginOffset) Less(i, j int) bool { return vOffset(c[i].Begin) < vOffset(c[j].Begin) }
func (c byBeginOffset) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }

type byVirtOffset []bgzf.Offset

func (o byVirtOffset) Len() int           { return len(o) }
func (o byVirtOffset) Less(i, j int) bool { return vOffset(o[i]) < vOffset(o[j]) }
func (o byVirtOffset) Swap(i, j int)      { o[i], o[j] = o[j], o[i] }
