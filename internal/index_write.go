// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mossbank/hts/bgzf"
)

// WriteIndex encodes idx to w. typ names the caller's format (e.g. "bai"),
// used only to annotate error messages.
func WriteIndex(w io.Writer, idx *Index, typ string) error {
	idx.sort()
	iw := indexWriter{w: w, typ: typ}
	if err := iw.writeIndices(idx.Refs); err != nil {
		return err
	}
	if idx.Unmapped != nil {
		return binary.Write(w, binary.LittleEndian, *idx.Unmapped)
	}
	return nil
}

// indexWriter carries the format name once instead of threading it through
// every encoding step as a parameter, since it is never anything but a
// label for the errors those steps return.
type indexWriter struct {
	w   io.Writer
	typ string
}

func (iw indexWriter) errf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: "+format, append([]interface{}{iw.typ}, args...)...)
}

func (iw indexWriter) writeIndices(idx []RefIndex) error {
	for i := range idx {
		if err := iw.writeBins(idx[i].Bins, idx[i].Stats); err != nil {
			return err
		}
		if err := iw.writeIntervals(idx[i].Intervals); err != nil {
			return err
		}
	}
	return nil
}

func (iw indexWriter) writeBins(bins []Bin, stats *ReferenceStats) error {
	n := int32(len(bins))
	if stats != nil {
		n++
	}
	if err := binary.Write(iw.w, binary.LittleEndian, &n); err != nil {
		return err
	}
	for _, b := range bins {
		if err := binary.Write(iw.w, binary.LittleEndian, b.Bin); err != nil {
			return iw.errf("failed to write bin number: %v", err)
		}
		if err := iw.writeChunks(b.Chunks); err != nil {
			return err
		}
	}
	if stats != nil {
		return iw.writeStats(stats)
	}
	return nil
}

func (iw indexWriter) writeChunks(chunks []bgzf.Chunk) error {
	if err := binary.Write(iw.w, binary.LittleEndian, int32(len(chunks))); err != nil {
		return iw.errf("failed to write bin count: %v", err)
	}
	for _, c := range chunks {
		if err := binary.Write(iw.w, binary.LittleEndian, vOffset(c.Begin)); err != nil {
			return iw.errf("failed to write chunk begin virtual offset: %v", err)
		}
		if err := binary.Write(iw.w, binary.LittleEndian, vOffset(c.End)); err != nil {
			return iw.errf("failed to write chunk end virtual offset: %v", err)
		}
	}
	return nil
}

func (iw indexWriter) writeStats(stats *ReferenceStats) error {
	if err := binary.Write(iw.w, binary.LittleEndian, [2]uint32{StatsDummyBin, 2}); err != nil {
		return iw.errf("failed to write stats bin header: %v", err)
	}
	if err := binary.Write(iw.w, binary.LittleEndian, vOffset(stats.Chunk.Begin)); err != nil {
		return iw.errf("failed to write index stats chunk begin virtual offset: %v", err)
	}
	if err := binary.Write(iw.w, binary.LittleEndian, vOffset(stats.Chunk.End)); err != nil {
		return iw.errf("failed to write index stats chunk end virtual offset: %v", err)
	}
	if err := binary.Write(iw.w, binary.LittleEndian, stats.Mapped); err != nil {
		return iw.errf("failed to write index stats mapped count: %v", err)
	}
	if err := binary.Write(iw.w, binary.LittleEndian, stats.Unmapped); err != nil {
		return iw.errf("failed to write index stats unmapped count: %v", err)
	}
	return nil
}

func (iw indexWriter) writeIntervals(offsets []bgzf.Offset) error {
	if err := binary.Write(iw.w, binary.LittleEndian, int32(len(offsets))); err != nil {
		return err
	}
	for _, o := range offsets {
		if err := binary.Write(iw.w, binary.LittleEndian, vOffset(o)); err != nil {
			return iw.errf("failed to write tile interval virtual offset: %v", err)
		}
	}
	return nil
}
