// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"testing"

	"gopkg.in/check.v1"

	"github.com/mossbank/hts/bgzf"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

// fakeRecord is the minimal Record implementation needed to drive Index.Add
// in isolation from the sam/bam packages.
type fakeRecord struct {
	refID      int
	start, end int
}

func (r fakeRecord) RefID() int { return r.refID }
func (r fakeRecord) Start() int { return r.start }
func (r fakeRecord) End() int   { return r.end }

func off(file int64, block uint16) bgzf.Offset { return bgzf.Offset{File: file, Block: block} }

func (s *S) TestBinForKnownCase(c *check.C) {
	// 1-based SAM POS 100, 36M alignment: 0-based start 99, half-open end 99+36.
	c.Check(BinFor(99, 135), check.Equals, uint32(4681))
}

func (s *S) TestBinForLargeSpan(c *check.C) {
	// A span crossing a level5 tile boundary climbs to a coarser bin.
	c.Check(BinFor(0, 1<<29), check.Equals, level0)
}

func (s *S) TestOverlappingBinsForIncludesBinFor(c *check.C) {
	bins := OverlappingBinsFor(99, 136)
	want := BinFor(99, 136)
	found := false
	for _, b := range bins {
		if b == want {
			found = true
		}
	}
	c.Check(found, check.Equals, true)
	c.Check(bins[0], check.Equals, level0)
}

func (s *S) TestIsValidIndexPos(c *check.C) {
	c.Check(IsValidIndexPos(-1), check.Equals, true)
	c.Check(IsValidIndexPos(0), check.Equals, true)
	c.Check(IsValidIndexPos(-2), check.Equals, false)
	c.Check(IsValidIndexPos(1<<29), check.Equals, false)
}

func (s *S) TestIndexAddUnplaced(c *check.C) {
	idx := &Index{}
	r := fakeRecord{refID: -1, start: -1, end: -1}
	err := idx.Add(r, StatsDummyBin, bgzf.Chunk{}, false, false)
	c.Assert(err, check.Equals, nil)
	c.Assert(idx.Unmapped, check.NotNil)
	c.Check(*idx.Unmapped, check.Equals, uint64(1))
	c.Check(len(idx.Refs), check.Equals, 0)
}

func (s *S) TestIndexAddAndChunks(c *check.C) {
	idx := &Index{}

	r1 := fakeRecord{refID: 0, start: 99, end: 136}
	c1 := bgzf.Chunk{Begin: off(0, 0), End: off(0, 100)}
	err := idx.Add(r1, BinFor(r1.start, r1.end), c1, true, true)
	c.Assert(err, check.Equals, nil)

	r2 := fakeRecord{refID: 0, start: 200, end: 236}
	c2 := bgzf.Chunk{Begin: off(0, 100), End: off(0, 200)}
	err = idx.Add(r2, BinFor(r2.start, r2.end), c2, true, true)
	c.Assert(err, check.Equals, nil)

	c.Assert(len(idx.Refs), check.Equals, 1)
	stats := idx.Refs[0].Stats
	c.Assert(stats, check.NotNil)
	c.Check(stats.Mapped, check.Equals, uint64(2))
	c.Check(stats.Unmapped, check.Equals, uint64(0))

	chunks, err := idx.Chunks(0, 99, 236)
	c.Assert(err, check.Equals, nil)
	c.Check(len(chunks) >= 1, check.Equals, true)
}

func (s *S) TestIndexAddSameBinCoalescesChunk(c *check.C) {
	idx := &Index{}

	r1 := fakeRecord{refID: 0, start: 99, end: 136}
	bin := BinFor(r1.start, r1.end)
	c1 := bgzf.Chunk{Begin: off(0, 0), End: off(0, 50)}
	c.Assert(idx.Add(r1, bin, c1, true, true), check.Equals, nil)

	r2 := fakeRecord{refID: 0, start: 100, end: 137}
	c2 := bgzf.Chunk{Begin: off(0, 30), End: off(0, 90)}
	c.Assert(idx.Add(r2, BinFor(r2.start, r2.end), c2, true, true), check.Equals, nil)

	c.Assert(len(idx.Refs[0].Bins), check.Equals, 1)
	c.Assert(len(idx.Refs[0].Bins[0].Chunks), check.Equals, 1)
	c.Check(idx.Refs[0].Bins[0].Chunks[0].End, check.Equals, off(0, 90))
}

func (s *S) TestIndexAddOutOfOrderRejected(c *check.C) {
	idx := &Index{}
	r1 := fakeRecord{refID: 0, start: 100, end: 136}
	c.Assert(idx.Add(r1, BinFor(100, 136), bgzf.Chunk{}, true, true), check.Equals, nil)

	r2 := fakeRecord{refID: 0, start: 50, end: 86}
	err := idx.Add(r2, BinFor(50, 86), bgzf.Chunk{}, true, true)
	c.Check(err, check.Not(check.Equals), nil)
}

func (s *S) TestIndexAddBackfillsIntervals(c *check.C) {
	idx := &Index{}

	r1 := fakeRecord{refID: 0, start: 5, end: 15}
	begin1 := off(0, 0)
	c.Assert(idx.Add(r1, BinFor(r1.start, r1.end), bgzf.Chunk{Begin: begin1, End: off(0, 10)}, true, true), check.Equals, nil)
	c.Assert(idx.Refs[0].Intervals, check.DeepEquals, []bgzf.Offset{begin1})

	// A record ending two tiles further on backfills the empty intermediate
	// tile with its own chunk begin offset, leaving the first tile intact.
	r2 := fakeRecord{refID: 0, start: 10, end: 2*TileWidth + 5}
	begin2 := off(0, 10)
	c.Assert(idx.Add(r2, BinFor(r2.start, r2.end), bgzf.Chunk{Begin: begin2, End: off(0, 20)}, true, true), check.Equals, nil)
	c.Assert(idx.Refs[0].Intervals, check.DeepEquals, []bgzf.Offset{begin1, begin2})
}

func (s *S) TestMergeChunksIdentity(c *check.C) {
	idx := &Index{}
	r := fakeRecord{refID: 0, start: 0, end: 10}
	c.Assert(idx.Add(r, BinFor(0, 10), bgzf.Chunk{Begin: off(0, 0), End: off(0, 10)}, true, true), check.Equals, nil)

	idx.MergeChunks(func(in []bgzf.Chunk) []bgzf.Chunk { return in })
	c.Check(len(idx.Refs[0].Bins[0].Chunks), check.Equals, 1)
}
