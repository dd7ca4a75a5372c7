// Copyright ©2015 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"testing"

	"gopkg.in/check.v1"

	"github.com/mossbank/hts/bgzf"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

// fakeBlock is a minimal bgzf.Block for exercising cache eviction policy
// without driving the full BGZF decode pipeline.
type fakeBlock struct {
	base int64
	used bool
}

func (b *fakeBlock) Base() int64          { return b.base }
func (b *fakeBlock) Used() bool           { return b.used }
func (b *fakeBlock) Read(p []byte) (int, error) { return 0, nil }
func (b *fakeBlock) NextBase() int64      { return b.base + 1 }
func (b *fakeBlock) Len() int             { return 0 }
func (b *fakeBlock) Reset()               { b.used = false }

func (s *S) TestLRUPutGet(c *check.C) {
	cc := NewLRU(2)
	c.Assert(cc, check.NotNil)

	b1 := &fakeBlock{base: 1}
	b2 := &fakeBlock{base: 2}
	_, retained := cc.Put(b1)
	c.Check(retained, check.Equals, true)
	_, retained = cc.Put(b2)
	c.Check(retained, check.Equals, true)
	c.Check(cc.Len(), check.Equals, 2)

	got := cc.Get(1)
	c.Assert(got, check.NotNil)
	c.Check(got.Base(), check.Equals, int64(1))
	c.Check(cc.Len(), check.Equals, 1)

	c.Check(cc.Get(1), check.IsNil)
}

func (s *S) TestLRUEvictsUnusedFirst(c *check.C) {
	cc := NewLRU(1)
	b1 := &fakeBlock{base: 1, used: false}
	cc.Put(b1)

	b2 := &fakeBlock{base: 2, used: true}
	evicted, retained := cc.Put(b2)
	c.Check(retained, check.Equals, true)
	c.Assert(evicted, check.NotNil)
	c.Check(evicted.Base(), check.Equals, int64(1))
}

func (s *S) TestLRURejectsWhenFullAndUnused(c *check.C) {
	cc := NewLRU(1)
	b1 := &fakeBlock{base: 1, used: true}
	cc.Put(b1)

	b2 := &fakeBlock{base: 2, used: false}
	_, retained := cc.Put(b2)
	c.Check(retained, check.Equals, false)
	c.Check(cc.Len(), check.Equals, 1)
}

func (s *S) TestFIFOBasic(c *check.C) {
	cc := NewFIFO(1)
	b1 := &fakeBlock{base: 1, used: true}
	cc.Put(b1)
	b2 := &fakeBlock{base: 2, used: true}
	evicted, retained := cc.Put(b2)
	c.Check(retained, check.Equals, true)
	c.Assert(evicted, check.NotNil)
	c.Check(evicted.Base(), check.Equals, int64(1))
}

func (s *S) TestRandomBasic(c *check.C) {
	cc := NewRandom(2)
	b1 := &fakeBlock{base: 1, used: true}
	b2 := &fakeBlock{base: 2, used: true}
	cc.Put(b1)
	cc.Put(b2)
	c.Check(cc.Len(), check.Equals, 2)
	c.Check(cc.Cap(), check.Equals, 2)

	got := cc.Get(1)
	c.Assert(got, check.NotNil)
	c.Check(cc.Len(), check.Equals, 1)
}

func (s *S) TestResizeDropsExcess(c *check.C) {
	cc := NewLRU(3)
	cc.Put(&fakeBlock{base: 1, used: true})
	cc.Put(&fakeBlock{base: 2, used: true})
	cc.Put(&fakeBlock{base: 3, used: true})
	c.Check(cc.Len(), check.Equals, 3)

	cc.Resize(1)
	c.Check(cc.Cap(), check.Equals, 1)
	c.Check(cc.Len(), check.Equals, 1)
}

func (s *S) TestFreeReportsAvailability(c *check.C) {
	cc := NewLRU(2)
	cc.Put(&fakeBlock{base: 1, used: true})
	c.Check(Free(1, cc), check.Equals, true)
	c.Check(Free(2, cc), check.Equals, true)
}

func (s *S) TestStatsRecorder(c *check.C) {
	rec := &StatsRecorder{Cache: NewLRU(1)}
	rec.Get(1)
	rec.Put(&fakeBlock{base: 1, used: true})
	rec.Get(1)

	st := rec.Stats()
	c.Check(st.Gets, check.Equals, 2)
	c.Check(st.Misses, check.Equals, 1)
	c.Check(st.Puts, check.Equals, 1)
	c.Check(st.Retains, check.Equals, 1)
}
