// Copyright ©2012 The bíogo.bam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"io"
	"sync"

	"github.com/mossbank/hts/internal/pool"
)

// decodeResult is the outcome of decoding one raw BGZF block, delivered in
// block-submission order regardless of which worker finished it.
type decodeResult struct {
	blk *block
	err error
}

// Reader reads a BGZF stream, presenting it as a plain byte stream while
// tracking virtual file offsets so callers can record and later Seek back
// to the start of any record.
//
// Raw blocks are read from the underlying io.Reader strictly in stream
// order by a single dispatch goroutine; inflation of up to rd blocks may
// happen concurrently, but results are always delivered to Read in the
// order the blocks appear in the stream.
type Reader struct {
	r      io.Reader
	closer io.Closer
	rd     int

	cache Cache

	// Blocked is set to true whenever the most recently consumed block
	// was the BGZF terminator (a valid empty block, not an io.EOF).
	Blocked bool

	mu         sync.Mutex
	curr       *block
	chunkBegin Offset

	order   chan chan decodeResult
	dispErr chan error
	cancel  chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
	err       error
}

// NewReader returns a Reader that reads a BGZF stream from r, inflating up
// to rd blocks concurrently. If rd is less than 1 it is treated as 1.
func NewReader(r io.Reader, rd int) (*Reader, error) {
	if rd < 1 {
		rd = 1
	}
	bg := &Reader{
		r:      r,
		rd:     rd,
		order:  make(chan chan decodeResult, rd),
		cancel: make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		bg.closer = c
	}
	bg.start()
	return bg, nil
}

// start launches the dispatch pipeline reading from bg.r at its current
// position.
func (bg *Reader) start() {
	sem := make(chan struct{}, bg.rd)
	bg.wg.Add(1)
	go func() {
		defer bg.wg.Done()
		defer close(bg.order)
		base, err := currentOffset(bg.r)
		for {
			select {
			case <-bg.cancel:
				return
			default:
			}
			raw, rerr := readRawBlock(bg.r)
			resc := make(chan decodeResult, 1)
			select {
			case bg.order <- resc:
			case <-bg.cancel:
				return
			}
			if rerr != nil {
				resc <- decodeResult{err: rerr}
				return
			}
			start := base
			base += int64(len(raw))
			sem <- struct{}{}
			bg.wg.Add(1)
			go func(raw []byte, start, next int64, resc chan decodeResult) {
				defer bg.wg.Done()
				defer func() { <-sem }()
				data, isEOF, derr := decodeBlock(raw)
				pool.PutBuffer(raw)
				if derr != nil {
					resc <- decodeResult{err: derr}
					return
				}
				resc <- decodeResult{blk: &block{base: start, next: next, data: data}, err: nil}
				_ = isEOF
			}(raw, start, base, resc)
		}
		_ = err
	}()
}

// currentOffset reports r's current byte offset if it is an io.Seeker,
// otherwise 0. Errors are ignored: offset tracking falls back to a
// monotonic count from zero, which is all that virtual-offset Seek needs
// when the stream is not itself seekable from outside this Reader.
func currentOffset(r io.Reader) (int64, error) {
	if s, ok := r.(io.Seeker); ok {
		return s.Seek(0, io.SeekCurrent)
	}
	return 0, nil
}

// nextBlock pulls the next decoded block from the pipeline, blocking until
// it is available.
func (bg *Reader) nextBlock() (*block, error) {
	resc, ok := <-bg.order
	if !ok {
		return nil, io.EOF
	}
	res := <-resc
	if res.err != nil {
		return nil, res.err
	}
	return res.blk, nil
}

// Read implements io.Reader, returning inflated BGZF payload bytes.
func (bg *Reader) Read(p []byte) (int, error) {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	if bg.err != nil {
		return 0, bg.err
	}
	for bg.curr == nil || bg.curr.Len() == 0 {
		blk, err := bg.nextBlock()
		if err != nil {
			bg.err = err
			return 0, err
		}
		if len(blk.data) == 0 {
			bg.Blocked = true
			bg.curr = blk
			continue
		}
		bg.Blocked = false
		bg.curr = blk
	}
	n, err := bg.curr.Read(p)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

// currentOffsetLocked returns the virtual offset of the next byte Read
// will return. Caller must hold bg.mu.
func (bg *Reader) currentOffsetLocked() Offset {
	if bg.curr == nil {
		return Offset{}
	}
	return Offset{File: bg.curr.base, Block: uint16(bg.curr.off)}
}

// Begin marks the current virtual offset as the start of a chunk to be
// retrieved later with LastChunk.
func (bg *Reader) Begin() {
	bg.mu.Lock()
	bg.chunkBegin = bg.currentOffsetLocked()
	bg.mu.Unlock()
}

// LastChunk returns the Chunk spanning from the virtual offset last marked
// with Begin to the current virtual offset.
func (bg *Reader) LastChunk() Chunk {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	return Chunk{Begin: bg.chunkBegin, End: bg.currentOffsetLocked()}
}

// BlockLen returns the number of unread uncompressed bytes remaining in
// the block currently being read.
func (bg *Reader) BlockLen() int {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	if bg.curr == nil {
		return 0
	}
	return bg.curr.Len()
}

// SetCache installs c as the Reader's block cache. A nil Cache disables
// caching.
func (bg *Reader) SetCache(c Cache) {
	bg.mu.Lock()
	bg.cache = c
	bg.mu.Unlock()
}

// Seek moves the Reader to the block at off.File and positions the next
// Read at the uncompressed byte off.Block within it. The underlying reader
// must implement io.Seeker.
func (bg *Reader) Seek(off Offset) error {
	s, ok := bg.r.(io.Seeker)
	if !ok {
		return ErrNotASeeker
	}

	bg.mu.Lock()
	defer bg.mu.Unlock()

	if bg.cache != nil {
		if blk, ok := bg.cache.Get(off.File).(*block); ok && blk != nil {
			blk.off = int(off.Block)
			bg.stopPipeline()
			if _, err := s.Seek(blk.next, io.SeekStart); err != nil {
				return err
			}
			bg.curr = blk
			bg.err = nil
			bg.startLocked()
			return nil
		}
	}

	bg.stopPipeline()
	if _, err := s.Seek(off.File, io.SeekStart); err != nil {
		return err
	}
	bg.curr = nil
	bg.err = nil
	bg.startLocked()

	for bg.curr == nil || bg.curr.base != off.File {
		blk, err := bg.nextBlock()
		if err != nil {
			bg.err = err
			return err
		}
		bg.curr = blk
	}
	bg.curr.off = int(off.Block)
	return nil
}

func (bg *Reader) stopPipeline() {
	close(bg.cancel)
	bg.wg.Wait()
	for range bg.order {
	}
	bg.cancel = make(chan struct{})
}

func (bg *Reader) startLocked() {
	bg.order = make(chan chan decodeResult, bg.rd)
	bg.start()
}

// Close releases resources held by the Reader, closing the underlying
// reader if it implements io.Closer.
func (bg *Reader) Close() error {
	var err error
	bg.closeOnce.Do(func() {
		bg.mu.Lock()
		bg.stopPipeline()
		bg.mu.Unlock()
		if bg.closer != nil {
			err = bg.closer.Close()
		}
	})
	return err
}
