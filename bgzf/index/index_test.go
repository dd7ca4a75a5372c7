// Copyright ©2015 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"bytes"
	"compress/flate"
	"io/ioutil"
	"testing"

	"gopkg.in/check.v1"

	"github.com/mossbank/hts/bgzf"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func off(file int64, block uint16) bgzf.Offset { return bgzf.Offset{File: file, Block: block} }
func chunk(a, b bgzf.Offset) bgzf.Chunk         { return bgzf.Chunk{Begin: a, End: b} }

func (s *S) TestIdentity(c *check.C) {
	chunks := []bgzf.Chunk{chunk(off(0, 0), off(0, 10)), chunk(off(1, 0), off(1, 10))}
	got := Identity(chunks)
	c.Check(got, check.DeepEquals, chunks)
}

func (s *S) TestAdjacentMergesOverlapping(c *check.C) {
	chunks := []bgzf.Chunk{
		chunk(off(0, 0), off(0, 50)),
		chunk(off(0, 30), off(0, 90)),
		chunk(off(5, 0), off(5, 10)),
	}
	got := Adjacent(chunks)
	c.Assert(len(got), check.Equals, 2)
	c.Check(got[0], check.Equals, chunk(off(0, 0), off(0, 90)))
	c.Check(got[1], check.Equals, chunk(off(5, 0), off(5, 10)))
}

func (s *S) TestAdjacentLeavesDisjoint(c *check.C) {
	chunks := []bgzf.Chunk{
		chunk(off(0, 0), off(0, 10)),
		chunk(off(5, 0), off(5, 10)),
	}
	got := Adjacent(chunks)
	c.Check(got, check.DeepEquals, chunks)
}

func (s *S) TestSquash(c *check.C) {
	chunks := []bgzf.Chunk{
		chunk(off(0, 0), off(0, 10)),
		chunk(off(5, 0), off(5, 90)),
	}
	got := Squash(chunks)
	c.Assert(len(got), check.Equals, 1)
	c.Check(got[0], check.Equals, chunk(off(0, 0), off(5, 90)))
}

func (s *S) TestSquashEmpty(c *check.C) {
	c.Check(Squash(nil), check.IsNil)
}

func (s *S) TestCompressorStrategyMergesNearby(c *check.C) {
	chunks := []bgzf.Chunk{
		chunk(off(0, 0), off(10, 0)),
		chunk(off(15, 0), off(40, 0)),
		chunk(off(1000, 0), off(1010, 0)),
	}
	got := CompressorStrategy(10)(chunks)
	c.Assert(len(got), check.Equals, 2)
	c.Check(got[0], check.Equals, chunk(off(0, 0), off(40, 0)))
}

func (s *S) TestChunkReaderRestrictsToChunks(c *check.C) {
	var buf bytes.Buffer
	w, err := bgzf.NewWriterLevel(&buf, flate.DefaultCompression, 1)
	c.Assert(err, check.Equals, nil)

	first := bytes.Repeat([]byte("a"), 30)
	begin1 := w.CurrentVirtualOffset()
	_, err = w.Write(first)
	c.Assert(err, check.Equals, nil)
	c.Assert(w.Flush(), check.Equals, nil)
	end1 := w.CurrentVirtualOffset()

	second := bytes.Repeat([]byte("b"), 30)
	begin2 := w.CurrentVirtualOffset()
	_, err = w.Write(second)
	c.Assert(err, check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)
	end2 := w.CurrentVirtualOffset()

	r, err := bgzf.NewReader(bytes.NewReader(buf.Bytes()), 1)
	c.Assert(err, check.Equals, nil)
	defer r.Close()

	cr, err := NewChunkReader(r, []bgzf.Chunk{chunk(begin1, end1), chunk(begin2, end2)})
	c.Assert(err, check.Equals, nil)
	got, err := ioutil.ReadAll(cr)
	c.Assert(err, check.Equals, nil)
	c.Check(bytes.Equal(got, append(append([]byte{}, first...), second...)), check.Equals, true)
	c.Assert(cr.Close(), check.Equals, nil)
}
