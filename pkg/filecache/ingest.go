package filecache

import (
	"bufio"
	"context"
	"errors"
	"io"
)

type readResult struct {
	line []byte
	err  error
}

// Ingest copies r into c one line per write unit, keeping line endings. A
// trailing partial line is written as its own unit. It returns the number of
// bytes accepted.
//
// Reads happen on a separate goroutine so that Ingest returns ctx.Err() as
// soon as ctx is done, even while r is blocked. That goroutine exits on its
// next read once ctx is done; callers that own r may close it to unblock it
// sooner.
func Ingest(ctx context.Context, c *Cache, r io.Reader) (int64, error) {
	lines := make(chan readResult)
	go readLines(ctx, bufio.NewReader(r), lines)

	var total int64
	for {
		var res readResult
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case res = <-lines:
		}

		if len(res.line) > 0 {
			if werr := c.Write(ctx, res.line); werr != nil {
				return total, werr
			}
			total += int64(len(res.line))
		}
		if errors.Is(res.err, io.EOF) {
			return total, nil
		}
		if res.err != nil {
			return total, res.err
		}
	}
}

func readLines(ctx context.Context, br *bufio.Reader, out chan<- readResult) {
	for {
		line, err := br.ReadBytes('\n')
		select {
		case out <- readResult{line: line, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}
