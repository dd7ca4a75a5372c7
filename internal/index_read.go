// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/mossbank/hts/bgzf"
)

// ReadIndex decodes an Index holding n references from r. typ names the
// caller's format (e.g. "bai"), used only to annotate error messages.
func ReadIndex(r io.Reader, n int32, typ string) (Index, error) {
	ir := indexReader{r: r, typ: typ}

	var idx Index
	var err error
	idx.Refs, err = ir.readIndices(n)
	if err != nil {
		return idx, err
	}
	var nUnmapped uint64
	err = binary.Read(r, binary.LittleEndian, &nUnmapped)
	if err == nil {
		idx.Unmapped = &nUnmapped
	} else if err != io.EOF {
		return idx, err
	}
	idx.IsSorted = true

	// Appending to a decoded index is not supported: further Add calls
	// would need LastRecord per reference, which the wire format does
	// not carry.
	idx.LastRecord = int(^uint(0) >> 1)

	return idx, nil
}

// indexReader carries the format name once instead of threading it through
// every decoding step as a parameter, since it is never anything but a
// label for the errors those steps return.
type indexReader struct {
	r   io.Reader
	typ string
}

func (ir indexReader) errf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: "+format, append([]interface{}{ir.typ}, args...)...)
}

func (ir indexReader) readIndices(n int32) ([]RefIndex, error) {
	var err error
	idx := make([]RefIndex, n)
	for i := range idx {
		idx[i].Bins, idx[i].Stats, err = ir.readBins()
		if err != nil {
			return nil, err
		}
		idx[i].Intervals, err = ir.readIntervals()
		if err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (ir indexReader) readBins() ([]Bin, *ReferenceStats, error) {
	var n int32
	err := binary.Read(ir.r, binary.LittleEndian, &n)
	if err != nil {
		return nil, nil, err
	}
	if n == 0 {
		return nil, nil, nil
	}
	var stats *ReferenceStats
	bins := make([]Bin, n)
	for i := 0; i < len(bins); i++ {
		err = binary.Read(ir.r, binary.LittleEndian, &bins[i].Bin)
		if err != nil {
			return nil, nil, ir.errf("failed to read bin number: %v", err)
		}
		err = binary.Read(ir.r, binary.LittleEndian, &n)
		if err != nil {
			return nil, nil, ir.errf("failed to read bin count: %v", err)
		}
		if bins[i].Bin == StatsDummyBin {
			if n != 2 {
				return nil, nil, ir.errf("malformed dummy bin header")
			}
			stats, err = ir.readStats()
			if err != nil {
				return nil, nil, err
			}
			bins = bins[:len(bins)-1]
			i--
			continue
		}
		bins[i].Chunks, err = ir.readChunks(n)
		if err != nil {
			return nil, nil, err
		}
	}
	if !sort.IsSorted(byBinNumber(bins)) {
		sort.Sort(byBinNumber(bins))
	}
	return bins, stats, nil
}

func (ir indexReader) readChunks(n int32) ([]bgzf.Chunk, error) {
	if n == 0 {
		return nil, nil
	}
	chunks := make([]bgzf.Chunk, n)
	var buf [16]byte
	for i := range chunks {
		_, err := io.ReadFull(ir.r, buf[:])
		if err != nil {
			return nil, ir.errf("failed to read chunk virtual offset: %v", err)
		}
		chunks[i].Begin = makeOffset(binary.LittleEndian.Uint64(buf[:8]))
		chunks[i].End = makeOffset(binary.LittleEndian.Uint64(buf[8:]))
	}
	if !sort.IsSorted(byBeginOffset(chunks)) {
		sort.Sort(byBeginOffset(chunks))
	}
	return chunks, nil
}

func (ir indexReader) readStats() (*ReferenceStats, error) {
	var (
		vOff  uint64
		stats ReferenceStats
		err   error
	)
	err = binary.Read(ir.r, binary.LittleEndian, &vOff)
	if err != nil {
		return nil, ir.errf("failed to read index stats chunk begin virtual offset: %v", err)
	}
	stats.Chunk.Begin = makeOffset(vOff)
	err = binary.Read(ir.r, binary.LittleEndian, &vOff)
	if err != nil {
		return nil, ir.errf("failed to read index stats chunk end virtual offset: %v", err)
	}
	stats.Chunk.End = makeOffset(vOff)
	err = binary.Read(ir.r, binary.LittleEndian, &stats.Mapped)
	if err != nil {
		return nil, ir.errf("failed to read index stats mapped count: %v", err)
	}
	err = binary.Read(ir.r, binary.LittleEndian, &stats.Unmapped)
	if err != nil {
		return nil, ir.errf("failed to read index stats unmapped count: %v", err)
	}
	return &stats, nil
}

func (ir indexReader) readIntervals() ([]bgzf.Offset, error) {
	var n int32
	err := binary.Read(ir.r, binary.LittleEndian, &n)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	offsets := make([]bgzf.Offset, n)
	const chunkSize = 512
	var vOffs [chunkSize]uint64
	for i := 0; i < int(n); i += chunkSize {
		l := min(int(n)-i, len(vOffs))
		err = binary.Read(ir.r, binary.LittleEndian, vOffs[:l])
		if err != nil {
			return nil, ir.errf("failed to read tile interval virtual offset: %v", err)
		}
		for k := 0; k < l; k++ {
			offsets[i+k] = makeOffset(vOffs[k])
		}
	}

	if !sort.IsSorted(byVirtOffset(offsets)) {
		sort.Sort(byVirtOffset(offsets))
	}
	return offsets, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
