package resource

import (
	"context"
	"io"
)

// LimitedWriter throttles writes through the controller's IO budget.
// Snapshot segment writers wrap their destination in one.
type LimitedWriter struct {
	w   io.Writer
	c   *Controller
	ctx context.Context
}

// NewLimitedWriter wraps w with the controller's IO limit.
func NewLimitedWriter(ctx context.Context, c *Controller, w io.Writer) *LimitedWriter {
	return &LimitedWriter{w: w, c: c, ctx: ctx}
}

func (lw *LimitedWriter) Write(p []byte) (int, error) {
	if err := lw.c.AcquireIO(lw.ctx, len(p)); err != nil {
		return 0, err
	}
	return lw.w.Write(p)
}

// LimitedReader throttles reads through the controller's IO budget. The
// budget is charged for the full buffer size before the read; short reads
// overcharge slightly, which keeps the limiter conservative.
type LimitedReader struct {
	r   io.Reader
	c   *Controller
	ctx context.Context
}

// NewLimitedReader wraps r with the controller's IO limit.
func NewLimitedReader(ctx context.Context, c *Controller, r io.Reader) *LimitedReader {
	return &LimitedReader{r: r, c: c, ctx: ctx}
}

func (lr *LimitedReader) Read(p []byte) (int, error) {
	if err := lr.c.AcquireIO(lr.ctx, len(p)); err != nil {
		return 0, err
	}
	return lr.r.Read(p)
}
