package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"immopilot/server/internal/models"
)

func TestNewTransactionQueue(t *testing.T) {
	logger := logrus.New()
	q := NewTransactionQueue(10, logger)
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.maxSize)
	assert.False(t, q.IsClosed())
}

func TestTransactionQueue_Push(t *testing.T) {
	logger := logrus.New()
	q := NewTransactionQueue(2, logger)

	// Test successful push
	batch := Batch{Transactions: []*models.Transaction{{ID: "T1"}}, Vintage: "2024"}
	err := q.Push(batch)
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// Test queue full
	for i := 0; i < 2; i++ {
		_ = q.Push(Batch{Transactions: []*models.Transaction{{ID: "T"}}})
	}
	err = q.Push(batch)
	assert.Equal(t, ErrQueueFull, err)

	// Test closed queue
	q.Close()
	err = q.Push(batch)
	assert.Equal(t, ErrQueueClosed, err)
}

func TestTransactionQueue_Subscribe(t *testing.T) {
	logger := logrus.New()
	q := NewTransactionQueue(10, logger)

	var processed []*models.Transaction
	var mu sync.Mutex

	q.Subscribe(func(batch Batch) error {
		mu.Lock()
		processed = append(processed, batch.Transactions...)
		mu.Unlock()
		return nil
	})

	q.Start()

	err := q.Push(Batch{
		Transactions: []*models.Transaction{{ID: "T1"}, {ID: "T2"}},
		Vintage:      "2024",
	})
	assert.NoError(t, err)

	// Wait for processing
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 2, len(processed))
	assert.Equal(t, "T1", processed[0].ID)
	assert.Equal(t, "T2", processed[1].ID)
	mu.Unlock()
}

func TestTransactionQueue_Close(t *testing.T) {
	logger := logrus.New()
	q := NewTransactionQueue(10, logger)

	err := q.Close()
	assert.NoError(t, err)
	assert.True(t, q.IsClosed())

	// Second close is a no-op
	err = q.Close()
	assert.NoError(t, err)
}

func TestTransactionQueue_ProcessBatch(t *testing.T) {
	logger := logrus.New()
	q := NewTransactionQueue(10, logger)

	var wg sync.WaitGroup
	processedBatches := 0
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		wg.Add(1)
		q.Subscribe(func(batch Batch) error {
			mu.Lock()
			processedBatches++
			mu.Unlock()
			wg.Done()
			return nil
		})
	}

	q.Start()

	err := q.Push(Batch{Transactions: []*models.Transaction{{ID: "T"}}})
	assert.NoError(t, err)

	wg.Wait()

	mu.Lock()
	assert.Equal(t, 3, processedBatches)
	mu.Unlock()
}
