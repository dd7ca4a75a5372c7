// Copyright ©2012 The bíogo.bam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"compress/flate"
	"io"
	"io/ioutil"
	"testing"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestOffsetCombine(c *check.C) {
	o := Offset{File: 12345, Block: 678}
	v := o.Combine()
	c.Check(OffsetFromVirtual(v), check.Equals, o)
}

func (s *S) TestOffsetLess(c *check.C) {
	a := Offset{File: 1, Block: 0}
	b := Offset{File: 1, Block: 1}
	cc := Offset{File: 2, Block: 0}
	c.Check(a.Less(b), check.Equals, true)
	c.Check(b.Less(a), check.Equals, false)
	c.Check(b.Less(cc), check.Equals, true)
}

func (s *S) TestWriteReadRoundTrip(c *check.C) {
	var buf bytes.Buffer
	w, err := NewWriterLevel(&buf, flate.DefaultCompression, 1)
	c.Assert(err, check.Equals, nil)

	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 2000)
	n, err := w.Write(payload)
	c.Assert(err, check.Equals, nil)
	c.Check(n, check.Equals, len(payload))

	c.Assert(w.Close(), check.Equals, nil)

	r, err := NewReader(bytes.NewReader(buf.Bytes()), 1)
	c.Assert(err, check.Equals, nil)
	got, err := ioutil.ReadAll(r)
	c.Assert(err, check.Equals, nil)
	c.Check(bytes.Equal(got, payload), check.Equals, true)
	c.Assert(r.Close(), check.Equals, nil)
}

func (s *S) TestWriterCurrentVirtualOffsetAdvances(c *check.C) {
	var buf bytes.Buffer
	w, err := NewWriterLevel(&buf, flate.DefaultCompression, 1)
	c.Assert(err, check.Equals, nil)

	before := w.CurrentVirtualOffset()
	c.Check(before, check.Equals, Offset{})

	_, err = w.Write([]byte("hello"))
	c.Assert(err, check.Equals, nil)
	after := w.CurrentVirtualOffset()
	c.Check(after.Block, check.Equals, uint16(5))
	c.Check(after.File, check.Equals, int64(0))

	c.Assert(w.Close(), check.Equals, nil)
}

func (s *S) TestEmptyStreamIsOneTerminatorBlock(c *check.C) {
	var buf bytes.Buffer
	w, err := NewWriterLevel(&buf, flate.DefaultCompression, 1)
	c.Assert(err, check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)

	r, err := NewReader(bytes.NewReader(buf.Bytes()), 1)
	c.Assert(err, check.Equals, nil)
	got, err := ioutil.ReadAll(r)
	c.Assert(err, check.Equals, nil)
	c.Check(len(got), check.Equals, 0)
	c.Assert(r.Close(), check.Equals, nil)
}

func (s *S) TestReaderBeginLastChunk(c *check.C) {
	var buf bytes.Buffer
	w, err := NewWriterLevel(&buf, flate.DefaultCompression, 1)
	c.Assert(err, check.Equals, nil)
	_, err = w.Write(bytes.Repeat([]byte("x"), 100))
	c.Assert(err, check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)

	r, err := NewReader(bytes.NewReader(buf.Bytes()), 1)
	c.Assert(err, check.Equals, nil)
	defer r.Close()

	r.Begin()
	p := make([]byte, 40)
	_, err = io.ReadFull(r, p)
	c.Assert(err, check.Equals, nil)
	chunk := r.LastChunk()
	c.Check(chunk.Begin.Combine() < chunk.End.Combine(), check.Equals, true)
}
