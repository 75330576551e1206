package pipeline

import (
	"fmt"

	"go-archive-merger/internal/model"
)

// Batch is a contiguous, half-open range [Start, End) of filtered entry indices.
type Batch struct {
	Number int // 1-based
	Start  int
	End    int
}

// Size returns the number of entries in the batch
func (b Batch) Size() int { return b.End - b.Start }

// BatchCount returns ceil(n/size).
func BatchCount(n, size int) (int, error) {
	if n < 0 || size <= 0 {
		return 0, fmt.Errorf("%w: n=%d size=%d", model.ErrInvalidPlan, n, size)
	}
	return (n + size - 1) / size, nil
}

// BatchRange returns the index range of the zero-based batch index.
func BatchRange(index, n, size int) (Batch, error) {
	count, err := BatchCount(n, size)
	if err != nil {
		return Batch{}, err
	}
	if index < 0 || index >= count {
		return Batch{}, fmt.Errorf("%w: batch %d out of range [0,%d)", model.ErrInvalidPlan, index, count)
	}
	return Batch{
		Number: index + 1,
		Start:  index * size,
		End:    min((index+1)*size, n),
	}, nil
}

func PlanBatches(n, size int) ([]Batch, error) {
	count, err := BatchCount(n, size)
	if err != nil {
		return nil, err
	}
	batches := make([]Batch, 0, count)
	for i := range count {
		batches = append(batches, Batch{
			Number: i + 1,
			Start:  i * size,
			End:    min((i+1)*size, n),
		})
	}
	return batches, nil
}
