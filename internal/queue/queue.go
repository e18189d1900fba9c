package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"immopilot/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Batch is one group of transactions headed for the snapshot store,
// tagged with the vintage it was loaded from.
type Batch struct {
	Transactions []*models.Transaction
	Vintage      string
}

// TransactionQueue is an in-memory queue of transaction batches feeding
// the snapshot processor.
type TransactionQueue struct {
	items    chan Batch
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(Batch) error
}

// NewTransactionQueue creates a new queue with the specified buffer size.
func NewTransactionQueue(bufferSize int, logger *logrus.Logger) *TransactionQueue {
	return &TransactionQueue{
		items:    make(chan Batch, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(Batch) error, 0),
	}
}

// Push adds a batch to the queue.
func (q *TransactionQueue) Push(batch Batch) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch.Transactions)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each batch.
func (q *TransactionQueue) Subscribe(handler func(Batch) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue.
func (q *TransactionQueue) Start() {
	go q.process()
}

func (q *TransactionQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.items:
			q.processBatch(batch)
		}
	}
}

func (q *TransactionQueue) processBatch(batch Batch) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops the queue and prevents new items from being added.
func (q *TransactionQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	close(q.items)
	return nil
}

// Len returns the current number of batches in the queue.
func (q *TransactionQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed.
func (q *TransactionQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
