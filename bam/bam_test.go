// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"bytes"
	"testing"

	"gopkg.in/check.v1"

	"github.com/mossbank/hts/sam"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func testHeader(c *check.C) (*sam.Header, *sam.Reference) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	c.Assert(err, check.Equals, nil)
	h, err := sam.NewHeader(nil, []*sam.Reference{ref})
	c.Assert(err, check.Equals, nil)
	h.SortOrder = sam.Coordinate
	return h, h.Refs()[0]
}

func testRecord(name string, ref *sam.Reference, pos int) *sam.Record {
	co, _ := sam.ParseCigar([]byte("4M"))
	return &sam.Record{
		Name:  name,
		Ref:   ref,
		Pos:   pos,
		MapQ:  30,
		Cigar: co,
		Flags: sam.Paired | sam.ProperPair,
		Seq:   sam.NewSeq([]byte("ACGT")),
		Qual:  []byte{30, 30, 30, 30},
	}
}

func (s *S) TestWriteReadRoundTrip(c *check.C) {
	h, ref := testHeader(c)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	c.Assert(err, check.Equals, nil)

	r1 := testRecord("read1", ref, 10)
	r2 := testRecord("read2", ref, 20)
	c.Assert(w.Write(r1), check.Equals, nil)
	c.Assert(w.Write(r2), check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)

	br, err := NewReader(&buf, 1)
	c.Assert(err, check.Equals, nil)
	defer br.Close()

	c.Check(br.Header().SortOrder, check.Equals, sam.Coordinate)

	got1, err := br.Read()
	c.Assert(err, check.Equals, nil)
	c.Check(got1.Name, check.Equals, "read1")
	c.Check(got1.Pos, check.Equals, 10)
	c.Check(string(got1.Seq.Expand()), check.Equals, "ACGT")

	got2, err := br.Read()
	c.Assert(err, check.Equals, nil)
	c.Check(got2.Name, check.Equals, "read2")
	c.Check(got2.Pos, check.Equals, 20)

	_, err = br.Read()
	c.Check(err, check.NotNil)
}

func (s *S) TestWriterOptionsCreateIndexAndMD5(c *check.C) {
	h, ref := testHeader(c)

	var bam, idxBuf, md5Buf bytes.Buffer
	w, err := NewWriterOptions(&bam, h, WriterOptions{
		CreateIndex: true,
		IndexWriter: &idxBuf,
		CreateMD5:   true,
		MD5Writer:   &md5Buf,
	})
	c.Assert(err, check.Equals, nil)

	c.Assert(w.Write(testRecord("read1", ref, 10)), check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)

	c.Check(idxBuf.Len() > 0, check.Equals, true)
	c.Check(md5Buf.Len(), check.Equals, 32) // hex-encoded 16 byte digest

	idx, err := ReadIndex(&idxBuf)
	c.Assert(err, check.Equals, nil)
	c.Assert(idx, check.NotNil)
	c.Check(idx.NumRefs(), check.Equals, 1)
}

func (s *S) TestWriterOptionsRejectsIndexWithoutCoordinateSort(c *check.C) {
	ref, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	c.Assert(err, check.Equals, nil)
	h, err := sam.NewHeader(nil, []*sam.Reference{ref})
	c.Assert(err, check.Equals, nil)
	h.SortOrder = sam.QueryName

	var bam, idxBuf bytes.Buffer
	_, err = NewWriterOptions(&bam, h, WriterOptions{CreateIndex: true, IndexWriter: &idxBuf})
	c.Check(err, check.NotNil)
}

func (s *S) TestCloseIsIdempotent(c *check.C) {
	h, _ := testHeader(c)
	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	c.Assert(err, check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)
	c.Assert(w.Close(), check.Equals, nil)
}

func (s *S) TestIndexAndChunks(c *check.C) {
	h, ref := testHeader(c)

	var buf bytes.Buffer
	var idxBuf bytes.Buffer
	w, err := NewWriterOptions(&buf, h, WriterOptions{CreateIndex: true, IndexWriter: &idxBuf})
	c.Assert(err, check.Equals, nil)

	for i := 0; i < 5; i++ {
		c.Assert(w.Write(testRecord("read", ref, i*100)), check.Equals, nil)
	}
	c.Assert(w.Close(), check.Equals, nil)

	idx, err := ReadIndex(&idxBuf)
	c.Assert(err, check.Equals, nil)
	chunks, err := idx.Chunks(ref, 0, 500)
	c.Assert(err, check.Equals, nil)
	c.Check(len(chunks) >= 1, check.Equals, true)
}

func (s *S) TestMergerConcatenatesUnsortedStreams(c *check.C) {
	h, ref := testHeader(c)
	h.SortOrder = sam.Unsorted

	var buf1, buf2 bytes.Buffer
	w1, err := NewWriter(&buf1, h, 1)
	c.Assert(err, check.Equals, nil)
	c.Assert(w1.Write(testRecord("a", ref, 1)), check.Equals, nil)
	c.Assert(w1.Close(), check.Equals, nil)

	w2, err := NewWriter(&buf2, h, 1)
	c.Assert(err, check.Equals, nil)
	c.Assert(w2.Write(testRecord("b", ref, 2)), check.Equals, nil)
	c.Assert(w2.Close(), check.Equals, nil)

	r1, err := NewReader(&buf1, 1)
	c.Assert(err, check.Equals, nil)
	r2, err := NewReader(&buf2, 1)
	c.Assert(err, check.Equals, nil)

	m, err := NewMerger(nil, r1, r2)
	c.Assert(err, check.Equals, nil)

	names := map[string]bool{}
	for {
		rec, err := m.Read()
		if err != nil {
			break
		}
		names[rec.Name] = true
	}
	c.Check(names["a"], check.Equals, true)
	c.Check(names["b"], check.Equals, true)
}
