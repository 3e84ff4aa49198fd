// Package ioctx provides context aware I/O helpers.
package ioctx

import (
	"context"
	"io"
)

// ContextualReadCloser is a wrapper around an io.ReadCloser that cancels the
// read operation when the context is canceled.
type ContextualReadCloser struct {
	Ctx    context.Context
	Reader io.ReadCloser
}

func (crc ContextualReadCloser) Read(p []byte) (n int, err error) {
	if crc.Ctx.Err() != nil {
		return 0, crc.Ctx.Err()
	}
	return crc.Reader.Read(p)
}

func (crc ContextualReadCloser) Close() error {
	return crc.Reader.Close()
}

// CopyChunks copies src to dst reading at most chunkSize bytes at a time. onChunk, if set, is called with
// the size of every chunk after it was written. Copying stops when ctx is done.
func CopyChunks(ctx context.Context, dst io.Writer, src io.Reader, chunkSize int, onChunk func(n int)) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			w, err := dst.Write(buf[:n])
			written += int64(w)
			if err != nil {
				return written, err
			}
			if w != n {
				return written, io.ErrShortWrite
			}
			if onChunk != nil {
				onChunk(n)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
