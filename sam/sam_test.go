// Copyright ©2013 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"testing"
	"time"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestCigarRoundTrip(c *check.C) {
	co, err := ParseCigar([]byte("12M3I4D1S"))
	c.Assert(err, check.Equals, nil)
	c.Check(co.String(), check.Equals, "12M3I4D1S")
	ref, read := co.Lengths()
	c.Check(ref, check.Equals, 16) // 12M + 4D
	c.Check(read, check.Equals, 16) // 12M + 3I + 1S
}

func (s *S) TestCigarStar(c *check.C) {
	co, err := ParseCigar([]byte("*"))
	c.Assert(err, check.Equals, nil)
	c.Check(co, check.IsNil)
	c.Check(co.String(), check.Equals, "*")
}

func (s *S) TestCigarIsValid(c *check.C) {
	co, err := ParseCigar([]byte("5S10M5S"))
	c.Assert(err, check.Equals, nil)
	c.Check(co.IsValid(20), check.Equals, true)
	c.Check(co.IsValid(19), check.Equals, false)

	bad, err := ParseCigar([]byte("5S5S10M"))
	c.Assert(err, check.Equals, nil)
	c.Check(bad.IsValid(20), check.Equals, false)
}

func (s *S) TestFlagsString(c *check.C) {
	f := Paired | Reverse | Read1
	c.Check(f.String(), check.Equals, "p---r-1-----")
}

func (s *S) TestSeqRoundTrip(c *check.C) {
	bases := []byte("ACGTACGTN")
	seq := NewSeq(bases)
	c.Check(seq.Length, check.Equals, len(bases))
	c.Check(string(seq.Expand()), check.Equals, string(bases))
}

func (s *S) TestRecordEndAndBin(c *check.C) {
	ref, err := NewReference("chr1", "", "", 1000, nil, nil)
	c.Assert(err, check.Equals, nil)
	h, err := NewHeader(nil, []*Reference{ref})
	c.Assert(err, check.Equals, nil)
	placedRef := h.Refs()[0]

	co, err := ParseCigar([]byte("36M"))
	c.Assert(err, check.Equals, nil)
	r := &Record{
		Name:  "read1",
		Ref:   placedRef,
		Pos:   99, // 0-based, SAM POS 100.
		Cigar: co,
		Seq:   NewSeq(bytes.Repeat([]byte("A"), 36)),
	}
	c.Check(r.End(), check.Equals, 135)
	c.Check(r.Bin(), check.Equals, 4681)
}

func (s *S) TestRecordBinUnmapped(c *check.C) {
	r := &Record{Name: "read1", Pos: -1, Flags: Unmapped}
	c.Check(r.Bin(), check.Equals, 4680)
}

func (s *S) TestLessByName(c *check.C) {
	a := &Record{Name: "a", Flags: Read1}
	b := &Record{Name: "a", Flags: Read2}
	d := &Record{Name: "b"}
	c.Check(a.LessByName(b), check.Equals, true)
	c.Check(b.LessByName(a), check.Equals, false)
	c.Check(a.LessByName(d), check.Equals, true)
}

func (s *S) TestLessByCoordinate(c *check.C) {
	ref, err := NewReference("chr1", "", "", 1000, nil, nil)
	c.Assert(err, check.Equals, nil)
	h, err := NewHeader(nil, []*Reference{ref})
	c.Assert(err, check.Equals, nil)
	placedRef := h.Refs()[0]

	a := &Record{Name: "a", Ref: placedRef, Pos: 10}
	b := &Record{Name: "b", Ref: placedRef, Pos: 20}
	unplaced := &Record{Name: "c", Pos: -1}
	c.Check(a.LessByCoordinate(b), check.Equals, true)
	c.Check(b.LessByCoordinate(a), check.Equals, false)
	c.Check(a.LessByCoordinate(unplaced), check.Equals, true)
	c.Check(unplaced.LessByCoordinate(a), check.Equals, false)
}

func (s *S) TestValidateUnmappedMapQ(c *check.C) {
	r := &Record{Name: "read1", Pos: -1, Flags: Unmapped, MapQ: 10}
	errs := r.Validate()
	found := false
	for _, e := range errs {
		if e == InvalidMappingQuality {
			found = true
		}
	}
	c.Check(found, check.Equals, true)
}

func (s *S) TestHeaderAddReference(c *check.C) {
	h, err := NewHeader(nil, nil)
	c.Assert(err, check.Equals, nil)

	ref, err := NewReference("chr1", "", "", 1000, nil, nil)
	c.Assert(err, check.Equals, nil)
	c.Assert(h.AddReference(ref), check.Equals, nil)
	c.Check(ref.ID(), check.Equals, 0)

	dup, err := NewReference("chr1", "", "", 1000, nil, nil)
	c.Assert(err, check.Equals, nil)
	c.Assert(h.AddReference(dup), check.Equals, nil)
	c.Check(h.Refs()[0].Name(), check.Equals, "chr1")

	conflict, err := NewReference("chr1", "", "", 2000, nil, nil)
	c.Assert(err, check.Equals, nil)
	c.Check(h.AddReference(conflict), check.Not(check.Equals), nil)
}

func (s *S) TestHeaderBinaryRoundTrip(c *check.C) {
	ref, err := NewReference("chr1", "", "", 1000, nil, nil)
	c.Assert(err, check.Equals, nil)
	h, err := NewHeader(nil, []*Reference{ref})
	c.Assert(err, check.Equals, nil)
	h.Version = "1.6" // The @HD line carrying SO is only written with a VN.
	h.SortOrder = Coordinate

	var buf bytes.Buffer
	c.Assert(h.EncodeBinary(&buf), check.Equals, nil)

	h2, err := NewHeader(nil, nil)
	c.Assert(err, check.Equals, nil)
	c.Assert(h2.DecodeBinary(&buf), check.Equals, nil)

	c.Check(h2.SortOrder, check.Equals, Coordinate)
	c.Check(len(h2.Refs()), check.Equals, 1)
	c.Check(h2.Refs()[0].Name(), check.Equals, "chr1")
	c.Check(h2.Refs()[0].Len(), check.Equals, 1000)
}

func (s *S) TestReadGroupDateParsing(c *check.C) {
	rg, err := NewReadGroup("rg1", "", "", "", "", "", "", "", "", "", time.Time{}, 0)
	c.Assert(err, check.Equals, nil)
	c.Assert(rg.Set(dateTag, "2015-01-02T00:00:00Z"), check.Equals, nil)
	c.Check(rg.Time().IsZero(), check.Equals, false)
}

func (s *S) TestProgramClone(c *check.C) {
	p := NewProgram("pg1", "aligner", "aligner -x", "", "1.0")
	cp := p.Clone()
	c.Check(cp.UID(), check.Equals, p.UID())
	c.Check(cp.ID(), check.Equals, -1)
}

func (s *S) TestAuxRoundTrip(c *check.C) {
	a, err := NewAux(NewTag("NM"), int32(3))
	c.Assert(err, check.Equals, nil)
	c.Check(a.Tag(), check.Equals, NewTag("NM"))
	c.Check(a.Value(), check.Equals, int32(3))

	s1, err := NewAux(NewTag("RG"), "group1")
	c.Assert(err, check.Equals, nil)
	c.Check(s1.Value(), check.Equals, "group1")
}
