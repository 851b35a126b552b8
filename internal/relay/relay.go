package relay

import (
	"context"
	"io"
	"net/http"
)

const bufLen = 32 * 1024

// Copy forwards bytes from the upstream stream to the sink until end of
// stream, sink failure or context cancellation, flushing after every
// chunk so clients see data while the download is still running. It
// returns the number of bytes handed to the sink.
//
// The read side is expected to be bound to the same context, so a
// cancelled sink (client gone) also unblocks a pending upstream read.
func Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	flusher, _ := dst.(http.Flusher)
	buf := make([]byte, bufLen)

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}

			if flusher != nil {
				flusher.Flush()
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
