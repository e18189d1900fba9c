package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"immopilot/server/config"
	"immopilot/server/internal/queue"
	"immopilot/server/internal/store"
)

// BatchProcessor drains the transaction queue into the snapshot store,
// retrying failed batches.
type BatchProcessor struct {
	db        *gorm.DB
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.TransactionQueue
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance.
func NewBatchProcessor(db *gorm.DB, q *queue.TransactionQueue, cfg *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:     db,
		queue:  q,
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing batches from the queue.
func (p *BatchProcessor) Start() {
	p.waitGroup.Add(1)
	go p.processLoop()
}

// Stop gracefully shuts down the processor.
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

func (p *BatchProcessor) processLoop() {
	defer p.waitGroup.Done()

	p.queue.Subscribe(func(batch queue.Batch) error {
		return p.processBatch(batch)
	})
}

// processBatch persists a single batch with transaction and retry logic.
func (p *BatchProcessor) processBatch(batch queue.Batch) error {
	var err error
	for attempt := 0; attempt <= p.config.Store.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch persistence, attempt %d of %d", attempt, p.config.Store.MaxRetries)
			time.Sleep(time.Duration(p.config.Store.RetryDelay) * time.Second)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := store.UpsertTransactions(tx, batch.Transactions, batch.Vintage); err != nil {
				return fmt.Errorf("failed to upsert transaction batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.WithFields(logrus.Fields{
				"batch_size": len(batch.Transactions),
				"vintage":    batch.Vintage,
			}).Info("Persisted transaction batch")
			return nil
		}

		p.logger.Errorf("Batch persistence failed: %v", err)
	}

	return fmt.Errorf("failed to persist batch after %d attempts: %w", p.config.Store.MaxRetries, err)
}
