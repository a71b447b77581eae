// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"bytes"
	"context"
	"io"

	"zerofs.io/errors"
	"zerofs.io/ucan"
	"zerofs.io/zerofs"
)

// defaultChunkSize is the read granularity used when the store does
// not report a node block size limit.
const defaultChunkSize = 64 * 1024

// An InputStream reads a file's content chunk by chunk. The stream
// owns a single pending buffer holding either bytes or an error:
// Wait refills it from the underlying reader, Read and Skip drain it
// front to back. Callers therefore never touch the asynchronous
// machinery directly and byte offsets stay exact across suspensions.
type InputStream struct {
	rc    io.ReadCloser
	chunk int64

	buf []byte
	err error
}

// ReadViaStream returns an input stream over the file's content,
// starting at offset. A file with no content yields an empty stream.
// Chunks are pulled lazily from the store, sized to the store's node
// block limit when it reports one.
func (h *Handle) ReadViaStream(ctx context.Context, offset int64, auth ucan.Auth) (*InputStream, error) {
	const op = "fs.ReadViaStream"

	file, err := h.File()
	if err != nil {
		return nil, errors.E(op, h.pathName(), err)
	}
	if !h.Flags().Has(zerofs.Read) {
		return nil, errors.E(op, h.pathName(), errors.WrongDescriptorFlags)
	}
	if err := auth.Verify(ctx, ucan.Capability{Resource: h.pathName(), Ability: ucan.AbilityRead}); err != nil {
		return nil, errors.E(op, h.pathName(), err)
	}

	var rc io.ReadCloser = io.NopCloser(bytes.NewReader(nil))
	if c, ok := file.Content(); ok {
		if rc, err = file.blockStore().GetBytes(ctx, c); err != nil {
			return nil, errors.E(op, h.pathName(), err)
		}
	}
	if offset > 0 {
		if _, err := io.CopyN(io.Discard, rc, offset); err != nil && err != io.EOF {
			rc.Close()
			return nil, errors.E(op, h.pathName(), errors.IO, err)
		}
	}

	chunk := file.blockStore().NodeBlockMaxSize()
	if chunk <= 0 {
		chunk = defaultChunkSize
	}
	return &InputStream{rc: rc, chunk: chunk}, nil
}

// Wait suspends until the next chunk, or an error, is ready in the
// stream's buffer. At end of stream the buffer stays empty.
func (s *InputStream) Wait(ctx context.Context) {
	if len(s.buf) > 0 || s.err != nil {
		return
	}
	if err := ctx.Err(); err != nil {
		s.err = err
		return
	}
	buf := make([]byte, s.chunk)
	n, err := s.rc.Read(buf)
	s.buf = buf[:n]
	if err != nil && err != io.EOF {
		s.err = err
	}
}

// Read returns up to n bytes drained from the front of the buffer.
// An empty result means the buffer is exhausted until the next Wait.
func (s *InputStream) Read(n int64) ([]byte, error) {
	if s.err != nil {
		err := s.err
		s.err = nil
		return nil, errors.E("fs.InputStream.Read", errors.IO, err)
	}
	take := int64(len(s.buf))
	if take > n {
		take = n
	}
	out := s.buf[:take]
	s.buf = s.buf[take:]
	return out, nil
}

// Skip consumes up to n bytes from the buffer and returns the count
// skipped.
func (s *InputStream) Skip(n int64) (int64, error) {
	out, err := s.Read(n)
	if err != nil {
		return 0, err
	}
	return int64(len(out)), nil
}

// Close releases the underlying reader.
func (s *InputStream) Close() error {
	s.buf = nil
	return s.rc.Close()
}

// An OutputStream accumulates writes for a file. Nothing reaches the
// store until Close, which writes the byte DAG into the handle's
// overlay and swaps the file's content via clone-on-write; the
// ancestor directories pick the change up at the handle's flush.
type OutputStream struct {
	handle *Handle
	buf    bytes.Buffer
	closed bool
}

// WriteViaStream returns an output stream over the file, starting at
// offset. A non-zero offset preserves the existing content up to that
// point.
func (h *Handle) WriteViaStream(ctx context.Context, offset int64, auth ucan.Auth) (*OutputStream, error) {
	const op = "fs.WriteViaStream"

	file, err := h.File()
	if err != nil {
		return nil, errors.E(op, h.pathName(), err)
	}
	if !h.Flags().Has(zerofs.Write) {
		return nil, errors.E(op, h.pathName(), errors.WrongDescriptorFlags)
	}
	if err := auth.Verify(ctx, ucan.Capability{Resource: h.pathName(), Ability: ucan.AbilityWrite}); err != nil {
		return nil, errors.E(op, h.pathName(), err)
	}

	s := &OutputStream{handle: h}
	if offset > 0 {
		c, ok := file.Content()
		if !ok {
			return nil, errors.E(op, h.pathName(), errors.IO, errors.Errorf("offset %d beyond empty file", offset))
		}
		rc, err := file.blockStore().GetBytes(ctx, c)
		if err != nil {
			return nil, errors.E(op, h.pathName(), err)
		}
		defer rc.Close()
		if _, err := io.CopyN(&s.buf, rc, offset); err != nil {
			return nil, errors.E(op, h.pathName(), errors.IO, err)
		}
	}
	return s, nil
}

// Write implements io.Writer, accumulating p in the stream.
func (s *OutputStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errors.E("fs.OutputStream.Write", errors.IO, errors.Str("stream is closed"))
	}
	return s.buf.Write(p)
}

// Close stores the accumulated bytes as the file's new content. An
// empty stream leaves the file logically empty, equivalent to a
// truncate.
func (s *OutputStream) Close(ctx context.Context) error {
	const op = "fs.OutputStream.Close"
	if s.closed {
		return nil
	}
	s.closed = true

	file, err := s.handle.File()
	if err != nil {
		return errors.E(op, err)
	}
	if s.buf.Len() == 0 {
		file.Truncate()
		s.handle.setEntity(file)
		return nil
	}
	c, err := file.blockStore().PutBytes(ctx, bytes.NewReader(s.buf.Bytes()))
	if err != nil {
		return errors.E(op, s.handle.pathName(), err)
	}
	file.SetContent(c)
	s.handle.setEntity(file)
	return nil
}

// PutBytes is a convenience over WriteViaStream and Close: it replaces
// the file's content with data in one step.
func (h *Handle) PutBytes(ctx context.Context, data []byte, auth ucan.Auth) error {
	s, err := h.WriteViaStream(ctx, 0, auth)
	if err != nil {
		return err
	}
	if _, err := s.Write(data); err != nil {
		return err
	}
	return s.Close(ctx)
}

// ReadAll is a convenience over ReadViaStream: it returns the file's
// entire content.
func (h *Handle) ReadAll(ctx context.Context, auth ucan.Auth) ([]byte, error) {
	s, err := h.ReadViaStream(ctx, 0, auth)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	var out []byte
	for {
		s.Wait(ctx)
		b, err := s.Read(int64(s.chunk))
		if err != nil {
			return nil, err
		}
		if len(b) == 0 {
			return out, nil
		}
		out = append(out, b...)
	}
}
