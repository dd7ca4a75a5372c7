// Copyright ©2012 The bíogo.bam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"compress/flate"
	"io"
	"sync"

	"github.com/mossbank/hts/internal/pool"
)

// Writer writes a BGZF stream, buffering uncompressed data into BlockSize
// chunks and compressing each with up to wc workers. Blocks are written to
// the underlying io.Writer strictly in submission order.
type Writer struct {
	w     io.Writer
	wc    int
	level int

	mu     sync.Mutex
	buf    []byte
	offset int64 // compressed bytes written so far

	jobs  chan compressJob
	order chan chan []byte
	wg    sync.WaitGroup

	drainWG sync.WaitGroup
	drainMu sync.Mutex
	werr    error

	closed bool
}

type compressJob struct {
	data []byte
	resc chan []byte
}

// NewWriter returns a Writer using flate.DefaultCompression and a single
// compression worker.
func NewWriter(w io.Writer) *Writer {
	wr, _ := NewWriterLevel(w, flate.DefaultCompression, 1)
	return wr
}

// NewWriterLevel returns a Writer that compresses at the given level using
// wc concurrent compression workers. If wc is less than 1 it is treated as
// 1.
func NewWriterLevel(w io.Writer, level, wc int) (*Writer, error) {
	if wc < 1 {
		wc = 1
	}
	bw := &Writer{
		w:     w,
		wc:    wc,
		level: level,
		buf:   make([]byte, 0, BlockSize),
		jobs:  make(chan compressJob),
		order: make(chan chan []byte, wc),
	}
	bw.startWorkers()
	bw.drainWG.Add(1)
	go bw.drain()
	return bw, nil
}

func (bw *Writer) startWorkers() {
	for i := 0; i < bw.wc; i++ {
		bw.wg.Add(1)
		go func() {
			defer bw.wg.Done()
			for job := range bw.jobs {
				raw, err := encodeBlock(job.data, bw.level)
				if err != nil {
					bw.setErr(err)
					job.resc <- nil
					continue
				}
				job.resc <- raw
			}
		}()
	}
}

// drain writes compressed blocks to the underlying writer strictly in the
// order they were submitted.
func (bw *Writer) drain() {
	defer bw.drainWG.Done()
	for resc := range bw.order {
		raw := <-resc
		if raw == nil {
			continue
		}
		if bw.Err() != nil {
			continue
		}
		if _, err := bw.w.Write(raw); err != nil {
			bw.setErr(err)
			continue
		}
		bw.mu.Lock()
		bw.offset += int64(len(raw))
		bw.mu.Unlock()
		pool.PutBuffer(raw)
	}
}

func (bw *Writer) setErr(err error) {
	bw.drainMu.Lock()
	if bw.werr == nil {
		bw.werr = err
	}
	bw.drainMu.Unlock()
}

// Err returns the first error encountered compressing or writing blocks.
func (bw *Writer) Err() error {
	bw.drainMu.Lock()
	defer bw.drainMu.Unlock()
	return bw.werr
}

// Write appends p to the Writer's buffer, flushing full BlockSize blocks to
// the compression pipeline as they fill.
func (bw *Writer) Write(p []byte) (int, error) {
	if bw.closed {
		return 0, ErrClosed
	}
	if err := bw.Err(); err != nil {
		return 0, err
	}
	total := len(p)
	for len(p) > 0 {
		n := copy(bw.buf[len(bw.buf):BlockSize], p)
		bw.buf = bw.buf[:len(bw.buf)+n]
		p = p[n:]
		if len(bw.buf) == BlockSize {
			if err := bw.flushBlock(); err != nil {
				return total - len(p), err
			}
		}
	}
	return total, nil
}

// CurrentVirtualOffset returns the virtual offset of the next byte that
// will be written, as seen by a reader of the stream once it is flushed.
func (bw *Writer) CurrentVirtualOffset() Offset {
	if !bw.closed {
		// The compressed offset only advances once drain has written
		// every submitted block.
		bw.Wait()
	}
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return Offset{File: bw.offset, Block: uint16(len(bw.buf))}
}

func (bw *Writer) flushBlock() error {
	if len(bw.buf) == 0 {
		return nil
	}
	data := make([]byte, len(bw.buf))
	copy(data, bw.buf)
	bw.buf = bw.buf[:0]

	resc := make(chan []byte, 1)
	bw.order <- resc
	bw.jobs <- compressJob{data: data, resc: resc}
	return bw.Err()
}

// Flush forces any buffered data into a BGZF block and blocks until all
// previously submitted blocks have been written to the underlying writer.
func (bw *Writer) Flush() error {
	if err := bw.flushBlock(); err != nil {
		return err
	}
	return bw.Wait()
}

// Wait blocks until every block submitted so far has been written to the
// underlying writer.
func (bw *Writer) Wait() error {
	// resc is unbuffered so the send below completes only when drain
	// reaches it, after every earlier block has been written.
	resc := make(chan []byte)
	bw.order <- resc
	resc <- []byte{}
	return bw.Err()
}

// Close flushes any buffered data, writes the BGZF terminator block, and
// releases the Writer's compression workers.
func (bw *Writer) Close() error {
	if bw.closed {
		return bw.Err()
	}
	bw.closed = true

	if err := bw.flushBlock(); err != nil {
		return err
	}

	resc := make(chan []byte, 1)
	bw.order <- resc
	bw.jobs <- compressJob{data: nil, resc: resc}

	close(bw.jobs)
	bw.wg.Wait()
	close(bw.order)
	bw.drainWG.Wait()

	return bw.Err()
}
