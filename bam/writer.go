// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"runtime"

	"github.com/mossbank/hts/bgzf"
	"github.com/mossbank/hts/sam"
)

// Writer implements BAM data writing.
type Writer struct {
	h *sam.Header

	bg  *bgzf.Writer
	buf bytes.Buffer

	idx          *Index
	idxW         io.Writer
	idxDiscarded bool
	md5          hash.Hash
	md5W         io.Writer
	flush        func() error
}

// NewWriter returns a new Writer using the given SAM header. Write
// concurrency is set to wc.
func NewWriter(w io.Writer, h *sam.Header, wc int) (*Writer, error) {
	return NewWriterLevel(w, h, gzip.DefaultCompression, wc)
}

func makeWriter(w io.Writer, level, wc int) (*bgzf.Writer, error) {
	if bw, ok := w.(*bgzf.Writer); ok {
		return bw, nil
	}
	return bgzf.NewWriterLevel(w, level, wc)
}

// NewWriterLevel returns a new Writer using the given SAM header. Write
// concurrency is set to wc and compression level is set to level. Valid
// values for level are described in the compress/gzip documentation.
func NewWriterLevel(w io.Writer, h *sam.Header, level, wc int) (*Writer, error) {
	bg, err := makeWriter(w, level, wc)
	if err != nil {
		return nil, err
	}
	bw := &Writer{
		bg: bg,
		h:  h,
	}

	err = bw.writeHeader(h)
	if err != nil {
		return nil, err
	}
	bw.bg.Flush()
	err = bw.bg.Wait()
	if err != nil {
		return nil, err
	}
	return bw, nil
}

// DefaultCompressionLevel is the deflate level used by NewWriterOptions when
// WriterOptions.CompressionLevel is left at its zero value.
const DefaultCompressionLevel = 5

// DefaultBufferSize is the I/O buffer size used by NewWriterOptions when
// WriterOptions.BufferSize is left at its zero value.
const DefaultBufferSize = 131072

// WriterOptions configures a Writer constructed by NewWriterOptions.
type WriterOptions struct {
	// CompressionLevel is the deflate level, 0 through 9. The zero value
	// selects DefaultCompressionLevel; there is no way to request level 0
	// (store, no compression) through WriterOptions — use NewWriterLevel
	// directly for that.
	CompressionLevel int

	// CreateIndex builds a BAI index alongside the BAM stream. The header's
	// sort order must be sam.Coordinate and IndexWriter must be set.
	CreateIndex bool
	// IndexWriter receives the BAI index written by Close when CreateIndex
	// is set.
	IndexWriter io.Writer

	// CreateMD5 computes an MD5 digest of the BAM bytes written and emits
	// it, hex-encoded, through MD5Writer when Close is called.
	CreateMD5 bool
	// MD5Writer receives the hex-encoded digest written by Close when
	// CreateMD5 is set.
	MD5Writer io.Writer

	// AsyncIO enables multiple concurrent compression workers instead of
	// the single synchronous worker used by default.
	AsyncIO bool

	// BufferSize sets the size of the buffer placed in front of the
	// destination writer. The zero value selects DefaultBufferSize.
	BufferSize int
}

// NewWriterOptions returns a new Writer using the given SAM header and
// configuration. It is the entry point that exercises compression level,
// indexing, MD5 and buffering configuration; NewWriter and NewWriterLevel
// remain available for callers that only need write concurrency control.
func NewWriterOptions(w io.Writer, h *sam.Header, opt WriterOptions) (*Writer, error) {
	if opt.CreateIndex && (h.SortOrder != sam.Coordinate || opt.IndexWriter == nil) {
		return nil, errors.New("bam: index requested without coordinate sort order and an index writer")
	}
	if opt.CreateMD5 && opt.MD5Writer == nil {
		return nil, errors.New("bam: md5 requested without an md5 writer")
	}

	level := opt.CompressionLevel
	if level == 0 {
		level = DefaultCompressionLevel
	}
	bufSize := opt.BufferSize
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	wc := 1
	if opt.AsyncIO {
		if wc = runtime.GOMAXPROCS(0); wc < 2 {
			wc = 2
		}
	}

	dst := w
	var sum hash.Hash
	if opt.CreateMD5 {
		sum = md5.New()
		dst = io.MultiWriter(w, sum)
	}
	dst = bufio.NewWriterSize(dst, bufSize)

	bw, err := NewWriterLevel(dst, h, level, wc)
	if err != nil {
		return nil, err
	}
	bw.md5 = sum
	bw.md5W = opt.MD5Writer
	if opt.CreateIndex {
		bw.idx = &Index{}
		bw.idxW = opt.IndexWriter
	}
	if bf, ok := dst.(*bufio.Writer); ok {
		bw.flush = bf.Flush
	}
	return bw, nil
}

func (bw *Writer) writeHeader(h *sam.Header) error {
	bw.buf.Reset()
	err := h.EncodeBinary(&bw.buf)
	if err != nil {
		return err
	}

	_, err = bw.bg.Write(bw.buf.Bytes())
	return err
}

// Write writes r to the BAM stream.
func (bw *Writer) Write(r *sam.Record) error {
	if len(r.Name) == 0 || len(r.Name) > 254 {
		return errors.New("bam: name absent or too long")
	}
	if r.Qual != nil && len(r.Qual) != r.Seq.Length {
		return errors.New("bam: sequence/quality length mismatch")
	}
	tags := buildAux(r.AuxFields)
	recLen := bamFixedRemainder +
		len(r.Name) + 1 + // Null terminated.
		len(r.Cigar)<<2 + // CigarOps are 4 bytes.
		len(r.Seq.Seq) +
		len(r.Qual) +
		len(tags)

	bw.buf.Reset()
	wb := errWriter{w: &bw.buf}
	bin := binaryWriter{w: &wb}

	// Write record header data.
	bin.writeInt32(int32(recLen))
	bin.writeInt32(int32(r.Ref.ID()))
	bin.writeInt32(int32(r.Pos))
	bin.writeUint8(byte(len(r.Name) + 1))
	bin.writeUint8(r.MapQ)
	bin.writeUint16(uint16(r.Bin()))
	bin.writeUint16(uint16(len(r.Cigar)))
	bin.writeUint16(uint16(r.Flags))
	bin.writeInt32(int32(r.Seq.Length))
	bin.writeInt32(int32(r.MateRef.ID()))
	bin.writeInt32(int32(r.MatePos))
	bin.writeInt32(int32(r.TempLen))

	// Write variable length data.
	wb.Write(append([]byte(r.Name), 0))
	writeCigarOps(&bin, r.Cigar)
	wb.Write(doublets(r.Seq.Seq).Bytes())
	if r.Qual != nil {
		wb.Write(r.Qual)
	} else {
		for i := 0; i < r.Seq.Length; i++ {
			wb.WriteByte(0xff)
		}
	}
	wb.Write(tags)
	if wb.err != nil {
		return wb.err
	}

	begin := bw.bg.CurrentVirtualOffset()
	_, err := bw.bg.Write(bw.buf.Bytes())
	if err != nil {
		return err
	}
	if bw.idx != nil {
		end := bw.bg.CurrentVirtualOffset()
		err = bw.idx.Add(r, bgzf.Chunk{Begin: begin, End: end})
		if err != nil {
			// An indexing failure must not be allowed to corrupt the
			// already-flushed BAM stream; drop the index rather than
			// let Close emit one built from incomplete chunks.
			bw.DeletePartialIndex()
		}
	}
	return nil
}

// DeletePartialIndex discards the index the Writer has accumulated so far,
// if indexing was requested. Already-written BAM data is unaffected; Close
// will no longer emit an index sidecar. Callers that detect a problem with
// the records they are feeding a Writer (for example, an out-of-order
// record that would otherwise produce a corrupt BAI file) can call this to
// fall back to an unindexed BAM stream instead of aborting the write
// entirely. Safe to call even when no index was requested, or more than
// once.
func (bw *Writer) DeletePartialIndex() {
	if bw.idx != nil {
		bw.idxDiscarded = true
	}
	bw.idx = nil
}

// IndexDiscarded reports whether the Writer's index was dropped, either by
// an indexing failure encountered in Write or by an explicit
// DeletePartialIndex call. It returns false when no index was ever
// requested.
func (bw *Writer) IndexDiscarded() bool {
	return bw.idxDiscarded
}

func writeCigarOps(bin *binaryWriter, co []sam.CigarOp) {
	for _, o := range co {
		bin.writeUint32(uint32(o))
		if bin.w.err != nil {
			return
		}
	}
}

// Close closes the writer, flushing the BAI sidecar and MD5 sum requested by
// WriterOptions, if any. Close is safe to call more than once; calls after
// the first succeed as a no-op.
func (bw *Writer) Close() error {
	if bw.bg == nil {
		return nil
	}
	err := bw.bg.Close()
	if err != nil {
		return err
	}
	if bw.flush != nil {
		err = bw.flush()
		if err != nil {
			return err
		}
	}
	if bw.idx != nil {
		err = WriteIndex(bw.idxW, bw.idx)
		if err != nil {
			return err
		}
	}
	if bw.md5 != nil {
		_, err = io.WriteString(bw.md5W, hex.EncodeToString(bw.md5.Sum(nil)))
		if err != nil {
			return err
		}
	}
	bw.bg = nil
	return nil
}

type errWriter struct {
	w   *bytes.Buffer
	err error
}

func (w *errWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	var n int
	n, w.err = w.w.Write(p)
	return n, w.err
}

func (w *errWriter) WriteByte(b byte) error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.WriteByte(b)
	return w.err
}

type binaryWriter struct {
	w   *errWriter
	buf [4]byte
}

func (w *binaryWriter) writeUint8(v uint8) {
	w.buf[0] = v
	w.w.Write(w.buf[:1])
}

func (w *binaryWriter) writeUint16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	w.w.Write(w.buf[:2])
}

func (w *binaryWriter) writeInt32(v int32) {
	binary.LittleEndian.PutUint32(w.buf[:4], uint32(v))
	w.w.Write(w.buf[:4])
}

func (w *binaryWriter) writeUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.w.Write(w.buf[:4])
}
