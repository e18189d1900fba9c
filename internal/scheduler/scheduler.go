package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"immopilot/server/config"
	"immopilot/server/internal/loader"
	"immopilot/server/internal/models"
	"immopilot/server/internal/queue"
)

// Scheduler refreshes the transaction snapshot once a day: it forces a
// cache-bypassing reload and feeds the result to the snapshot queue.
type Scheduler struct {
	loader   *loader.Loader
	queue    *queue.TransactionQueue
	cfg      *config.Config
	logger   *logrus.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential job execution
}

// NewScheduler creates a new scheduler.
func NewScheduler(l *loader.Loader, q *queue.TransactionQueue, cfg *config.Config, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		loader:   l,
		queue:    q,
		cfg:      cfg,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduled tasks.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			if t.Hour() == s.cfg.Scheduler.RefreshHour && t.Minute() == 0 {
				s.RefreshSnapshot(context.Background())
			}
		}
	}
}

// RefreshSnapshot forces a reload of the active vintage and pushes the
// result to the snapshot queue in store-sized batches.
func (s *Scheduler) RefreshSnapshot(ctx context.Context) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	s.logger.Info("Starting snapshot refresh")

	s.loader.ClearCache()
	transactions, err := s.loader.LoadTransactions(ctx, nil)
	if err != nil {
		s.logger.WithError(err).Error("Snapshot refresh failed")
		return
	}

	vintage := s.loader.ActiveVintage()
	batchSize := s.cfg.Store.BatchSize
	for start := 0; start < len(transactions); start += batchSize {
		end := start + batchSize
		if end > len(transactions) {
			end = len(transactions)
		}

		batch := make([]*models.Transaction, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, &transactions[i])
		}

		if err := s.queue.Push(queue.Batch{Transactions: batch, Vintage: vintage}); err != nil {
			s.logger.WithError(err).Warn("Failed to enqueue snapshot batch")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"vintage": vintage,
		"count":   len(transactions),
	}).Info("Snapshot refresh completed")
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
