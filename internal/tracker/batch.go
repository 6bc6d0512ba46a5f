package tracker

import (
	"context"
	"errors"
	"sync"

	"github.com/pweiskircher/buganize/internal/issue"
)

type batchOutcome struct {
	issues []issue.Issue
	err    error
}

// fetchBatches runs one batch request per chunk on a bounded worker pool and
// concatenates the results in chunk order. A failure cancels the remaining
// chunks; the first failure in chunk order that is not such a cancellation is
// returned.
func (c *Client) fetchBatches(ctx context.Context, chunks [][]int64) ([]issue.Issue, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]batchOutcome, len(chunks))
	jobs := make(chan int, len(chunks))

	workerCount := c.concurrency
	if workerCount > len(chunks) {
		workerCount = len(chunks)
	}
	if workerCount <= 0 {
		workerCount = 1
	}

	var wg sync.WaitGroup
	for worker := 0; worker < workerCount; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				if err := ctx.Err(); err != nil {
					outcomes[index] = batchOutcome{err: err}
					continue
				}
				issues, err := c.fetchBatch(ctx, chunks[index])
				outcomes[index] = batchOutcome{issues: issues, err: err}
				if err != nil {
					cancel()
				}
			}
		}()
	}

	for index := range chunks {
		jobs <- index
	}
	close(jobs)
	wg.Wait()

	total := 0
	for _, outcome := range outcomes {
		total += len(outcome.issues)
	}

	merged := make([]issue.Issue, 0, total)
	var firstErr error
	for _, outcome := range outcomes {
		if outcome.err != nil {
			if firstErr == nil || isCancellation(firstErr) {
				firstErr = outcome.err
			}
			continue
		}
		merged = append(merged, outcome.issues...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return merged, nil
}

func chunkIDs(ids []int64, size int) [][]int64 {
	if size <= 0 || len(ids) <= size {
		return [][]int64{ids}
	}

	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
