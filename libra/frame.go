package libra

import (
	"context"
	"io"

	"github.com/Iam54r1n4/protohs/internal/netio"
)

// readChunk is how many bytes frameIO reads from the wire at a time while
// accumulating a partial frame. Reading one byte at a time means frameIO
// never reads past the end of the frame it is decoding, so no payload bytes
// are left behind in buf when the handshake hands the stream back.
const readChunk = 1

// frameIO pairs a Decoder with the raw stream and a leftover-bytes buffer,
// playing the role tokio_util's Framed/Decoder pair plays in the original:
// callers work in terms of frames, not bytes.
type frameIO struct {
	rw  io.ReadWriter
	dec *Decoder
	buf []byte
}

func newFrameIO(rw io.ReadWriter, stage Stage) *frameIO {
	return &frameIO{rw: rw, dec: NewDecoder(stage)}
}

// sendWait encodes and writes frame, advances the decoder to expect
// nextStage, and blocks until the next full frame arrives.
func (f *frameIO) sendWait(ctx context.Context, frame any, nextStage Stage) (any, error) {
	if err := f.send(ctx, frame); err != nil {
		return nil, err
	}
	f.dec.SetStage(nextStage)
	return f.recv(ctx)
}

// send encodes and writes frame without waiting for a reply.
func (f *frameIO) send(ctx context.Context, frame any) error {
	out, err := Encode(frame)
	if err != nil {
		return err
	}
	for len(out) > 0 {
		n, err := netio.WriteWithContext(ctx, f.rw, out)
		if err != nil {
			return err
		}
		out = out[n:]
	}
	return nil
}

// recv blocks until the decoder's current stage produces a complete frame,
// reading more bytes from rw as needed.
func (f *frameIO) recv(ctx context.Context) (any, error) {
	for {
		frame, n, err := f.dec.Decode(f.buf)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			f.buf = f.buf[n:]
			return frame, nil
		}

		chunk := make([]byte, readChunk)
		n, err = netio.ReadWithContext(ctx, f.rw, chunk)
		if n > 0 {
			f.buf = append(f.buf, chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF && n > 0 {
				continue
			}
			return nil, err
		}
	}
}
