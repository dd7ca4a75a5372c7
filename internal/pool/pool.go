// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pool recycles the []byte buffers bgzf allocates per block, so a
// long-running reader or writer doesn't allocate and immediately discard
// one buffer per BGZF member.
package pool

import "sync"

// maxBufferSize is the largest buffer this package recycles: one BGZF
// block, compressed or raw, never exceeds 65536 bytes (bgzf.MaxBlockSize).
// Requests above that are served from a plain allocation instead of
// growing the pool's own buffer size, since every known caller stays under
// the limit and a pool stratified across arbitrary sizes would be solving
// a problem this package doesn't have.
const maxBufferSize = 1 << 16

var bufs = sync.Pool{
	New: func() interface{} {
		b := make([]byte, maxBufferSize)
		return &b
	},
}

// GetBuffer returns a []byte of length size. Buffers at or under
// maxBufferSize come from the pool; larger requests fall back to a fresh
// allocation, since a size that big can't have come from this pool.
func GetBuffer(size int) []byte {
	if size == 0 {
		return nil
	}
	if size > maxBufferSize {
		return make([]byte, size)
	}
	bp := bufs.Get().(*[]byte)
	return (*bp)[:size]
}

// PutBuffer returns buf to the pool for reuse. Buffers whose capacity
// doesn't match a pool-issued buffer are left for the garbage collector
// instead of being pooled under the wrong size.
func PutBuffer(buf []byte) {
	if cap(buf) != maxBufferSize {
		return
	}
	b := buf[:maxBufferSize]
	bufs.Put(&b)
}
