// Copyright ©2020 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"io"

	"golang.org/x/exp/mmap"
)

// MappedIndex is a BAI index held behind a memory-mapped file rather than an
// in-process copy read from disk. It parses the index through the mapping,
// so only the pages actually touched while decoding the bin/chunk/interval
// records are paged in.
type MappedIndex struct {
	f *mmap.ReaderAt
	*Index
}

// OpenMappedIndex memory-maps the BAI file at path and parses it.
func OpenMappedIndex(path string) (*MappedIndex, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	idx, err := ReadIndex(io.NewSectionReader(f, 0, int64(f.Len())))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MappedIndex{f: f, Index: idx}, nil
}

// Close releases the memory mapping backing the index. The bin, chunk and
// interval data already parsed into the embedded Index remain valid after
// Close, since they were copied into ordinary Go values during parsing.
func (m *MappedIndex) Close() error {
	return m.f.Close()
}
