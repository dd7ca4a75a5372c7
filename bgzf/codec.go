// Copyright ©2012 The bíogo.bam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"compress/flate"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/mossbank/hts/internal/pool"
)

// eofMarker is the 28 byte BGZF terminator block: an empty DEFLATE stream
// wrapped in a gzip member whose BC subfield holds BSIZE 27 (its size
// minus one).
var eofMarker = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00,
	0x42, 0x43, 0x02, 0x00, 0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// encodeBlock compresses data (at most BlockSize bytes) into a single BGZF
// block, including the BC-extra gzip header and CRC/ISIZE footer.
func encodeBlock(data []byte, level int) ([]byte, error) {
	if len(data) == 0 {
		out := make([]byte, len(eofMarker))
		copy(out, eofMarker)
		return out, nil
	}
	if len(data) > BlockSize {
		panic("bgzf: block too large")
	}

	var payload bytes.Buffer
	fw, err := flate.NewWriter(&payload, level)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}

	total := blockHeaderLen + payload.Len() + blockFooterLen
	if total > MaxBlockSize {
		return nil, ErrBlockOverflow
	}

	buf := pool.GetBuffer(total)
	copy(buf[0:4], magic[:])
	// MTIME, XFL, OS are zero; XLEN = 6 (one BC subfield). The pooled
	// buffer may hold an earlier block's bytes, so clear them explicitly.
	for i := 4; i < 10; i++ {
		buf[i] = 0
	}
	putUint16(buf[10:12], 6)
	copy(buf[12:14], bgzfExtraPrefix[0:2]) // "BC"
	putUint16(buf[14:16], 2)               // SLEN
	putUint16(buf[16:18], uint16(total-1)) // BSIZE

	n := copy(buf[blockHeaderLen:], payload.Bytes())
	footer := buf[blockHeaderLen+n:]
	putUint32(footer[0:4], crc32.ChecksumIEEE(data))
	putUint32(footer[4:8], uint32(len(data)))

	return buf, nil
}

// readRawBlock reads one complete BGZF block (header, compressed payload
// and footer) from r, returning the raw bytes; their length is the declared
// compressed block size (BSIZE+1).
func readRawBlock(r io.Reader) ([]byte, error) {
	head := make([]byte, blockHeaderLen)
	if _, err := io.ReadFull(r, head[:12]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = ErrTruncated
		}
		return nil, err
	}
	if head[0] != magic[0] || head[1] != magic[1] || head[2] != magic[2] || head[3]&0x04 == 0 {
		return nil, ErrMalformedHeader
	}
	xlen := int(getUint16(head[10:12]))
	extra := make([]byte, xlen)
	if xlen > 0 {
		if _, err := io.ReadFull(r, extra); err != nil {
			return nil, ErrTruncated
		}
	}
	i := bytes.Index(extra, bgzfExtraPrefix)
	if i < 0 || i+5 >= len(extra) {
		return nil, ErrNoBlockSize
	}
	bsize := int(getUint16(extra[i+4:i+6])) + 1

	total := 12 + xlen + (bsize - 12 - xlen)
	if total != bsize {
		return nil, ErrMalformedHeader
	}
	rest := make([]byte, bsize-12-xlen)
	if _, err := io.ReadFull(r, rest); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = ErrTruncated
		}
		return nil, err
	}

	raw := pool.GetBuffer(bsize)[:0]
	raw = append(raw, head[:12]...)
	raw = append(raw, extra...)
	raw = append(raw, rest...)
	return raw, nil
}

// decodeBlock inflates a raw BGZF block (as returned by readRawBlock) and
// validates its CRC32 and ISIZE. isEOF reports whether the block is the
// zero-length BGZF terminator.
func decodeBlock(raw []byte) (data []byte, isEOF bool, err error) {
	if len(raw) < blockHeaderLen+blockFooterLen {
		return nil, false, ErrTruncated
	}
	xlen := int(getUint16(raw[10:12]))
	payload := raw[blockHeaderLen : len(raw)-blockFooterLen]
	footer := raw[len(raw)-blockFooterLen:]
	wantCRC := getUint32(footer[0:4])
	wantISIZE := getUint32(footer[4:8])
	_ = xlen

	if wantISIZE == 0 {
		return nil, true, nil
	}

	fr := flate.NewReader(bytes.NewReader(payload))
	defer fr.Close()
	data = make([]byte, 0, wantISIZE)
	buf := bytes.NewBuffer(data)
	if _, err := io.Copy(buf, fr); err != nil {
		return nil, false, fmt.Errorf("bgzf: inflate failed: %w", err)
	}
	data = buf.Bytes()

	if uint32(len(data)) != wantISIZE {
		return nil, false, ErrISIZEMismatch
	}
	if crc32.ChecksumIEEE(data) != wantCRC {
		return nil, false, ErrCRCMismatch
	}
	return data, false, nil
}

// blockSize returns the declared compressed size (BSIZE+1) of raw block
// bytes previously returned by readRawBlock.
func blockSize(raw []byte) int64 { return int64(len(raw)) }
