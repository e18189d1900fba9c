package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"immopilot/server/config"
	"immopilot/server/internal/ingest"
	"immopilot/server/internal/models"
)

// ErrNoData is returned when every configured vintage yields zero
// admissible transactions.
var ErrNoData = errors.New("no transaction data available from any vintage")

// ProgressFunc observes load progress. It never changes the result.
type ProgressFunc func(models.LoadProgress)

// Stats exposes the aggregate accepted/rejected counters of the last load.
type Stats struct {
	RowsRead     int `json:"rows_read"`
	RowsAccepted int `json:"rows_accepted"`
	RowsRejected int `json:"rows_rejected"`
}

// Loader reads transaction batches from the configured vintages, newest
// first, falling back to older ones when the newest yields too few
// admissible rows. Successful loads are cached for the configured TTL.
type Loader struct {
	logger   *logrus.Logger
	cfg      *config.Config
	source   Source
	cache    *BatchCache
	vintages []config.Vintage

	mu            sync.RWMutex
	activeVintage string
	lastStats     Stats
	fetchCount    int64
}

func NewLoader(logger *logrus.Logger, cfg *config.Config, source Source, cache *BatchCache, vintages []config.Vintage) *Loader {
	l := &Loader{
		logger:   logger,
		cfg:      cfg,
		source:   source,
		cache:    cache,
		vintages: vintages,
	}
	if len(vintages) > 0 {
		l.activeVintage = vintages[0].Name
	}
	return l
}

// LoadTransactions returns the admissible transactions of the active
// vintage, served from cache within the TTL window. onProgress may be nil.
func (l *Loader) LoadTransactions(ctx context.Context, onProgress ProgressFunc) ([]models.Transaction, error) {
	if transactions, vintage, ok := l.cache.Get(); ok {
		l.logger.WithFields(logrus.Fields{
			"vintage": vintage,
			"count":   len(transactions),
		}).Debug("Serving transactions from cache")
		emit(onProgress, models.LoadProgress{Stage: models.LoadStageComplete, Percent: 100, RowsAccepted: len(transactions)})
		return transactions, nil
	}

	if len(l.vintages) == 0 {
		emit(onProgress, models.LoadProgress{Stage: models.LoadStageError, Percent: 100})
		return nil, ErrNoData
	}

	progress := newProgressTracker(onProgress)
	progress.stage(models.LoadStageLoading, 5, 0, 0)

	var best []models.Transaction
	var bestVintage string
	var bestStats Stats

	for i, vintage := range l.vintages {
		transactions, stats, err := l.loadVintage(ctx, vintage, progress)
		if err != nil {
			l.logger.WithError(err).WithField("vintage", vintage.Name).Warn("Vintage load failed, trying next")
			continue
		}

		l.logger.WithFields(logrus.Fields{
			"vintage":  vintage.Name,
			"accepted": stats.RowsAccepted,
			"rejected": stats.RowsRejected,
		}).Info("Loaded vintage")

		if i == 0 {
			best = transactions
			bestVintage = vintage.Name
			bestStats = stats
			if len(transactions) >= l.cfg.Loader.MinTransactionThreshold {
				break
			}
			l.logger.WithFields(logrus.Fields{
				"vintage":   vintage.Name,
				"count":     len(transactions),
				"threshold": l.cfg.Loader.MinTransactionThreshold,
			}).Info("Primary vintage insufficient, loading fallback")
			continue
		}

		// A fallback that yields anything replaces the primary result.
		if len(transactions) > 0 {
			best = transactions
			bestVintage = vintage.Name
			bestStats = stats
			break
		}
	}

	if len(best) == 0 {
		progress.stage(models.LoadStageError, 100, bestStats.RowsRead, 0)
		return nil, ErrNoData
	}

	progress.stage(models.LoadStageFiltering, 90, bestStats.RowsRead, bestStats.RowsAccepted)

	l.cache.Set(best, bestVintage)

	l.mu.Lock()
	l.activeVintage = bestVintage
	l.lastStats = bestStats
	l.mu.Unlock()

	progress.stage(models.LoadStageComplete, 100, bestStats.RowsRead, bestStats.RowsAccepted)
	return best, nil
}

// loadVintage reads a bounded prefix of one vintage's rows and keeps the
// admissible transactions. Row-level failures are counted, never surfaced.
func (l *Loader) loadVintage(ctx context.Context, vintage config.Vintage, progress *progressTracker) ([]models.Transaction, Stats, error) {
	var stats Stats

	l.mu.Lock()
	l.fetchCount++
	l.mu.Unlock()

	body, err := l.source.Open(ctx, vintage)
	if err != nil {
		return nil, stats, err
	}
	defer body.Close()

	reader := csv.NewReader(body)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read header of vintage %s: %w", vintage.Name, err)
	}
	cols, err := ingest.ResolveColumns(header)
	if err != nil {
		return nil, stats, fmt.Errorf("vintage %s: %w", vintage.Name, err)
	}

	maxRows := l.cfg.Loader.MaxRowsAnalyzed
	var transactions []models.Transaction

	for stats.RowsRead < maxRows {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed line: count and continue, never abort the batch
			stats.RowsRead++
			stats.RowsRejected++
			continue
		}
		stats.RowsRead++

		tx, parseErr := ingest.ParseRow(record, cols)
		if parseErr != nil {
			stats.RowsRejected++
			continue
		}
		transactions = append(transactions, *tx)
		stats.RowsAccepted++

		if stats.RowsRead%2000 == 0 {
			percent := 10 + 75*stats.RowsRead/maxRows
			progress.stage(models.LoadStageParsing, percent, stats.RowsRead, stats.RowsAccepted)
		}
	}

	return transactions, stats, nil
}

// ActiveVintage returns the vintage name that backed the last successful
// load, or the primary vintage when nothing has been loaded yet.
func (l *Loader) ActiveVintage() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.activeVintage
}

// LastStats returns the accepted/rejected counters of the last load.
func (l *Loader) LastStats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastStats
}

// FetchCount returns how many vintage fetches were issued past the cache.
func (l *Loader) FetchCount() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fetchCount
}

// ClearCache drops the cached batch and resets the active vintage to the
// primary one.
func (l *Loader) ClearCache() {
	l.cache.Clear()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.vintages) > 0 {
		l.activeVintage = l.vintages[0].Name
	}
}

// progressTracker keeps the reported percentage monotonically
// non-decreasing across one load, even when a fallback restarts parsing.
type progressTracker struct {
	onProgress  ProgressFunc
	lastPercent int
}

func newProgressTracker(onProgress ProgressFunc) *progressTracker {
	return &progressTracker{onProgress: onProgress}
}

func (p *progressTracker) stage(stage models.LoadStage, percent, rowsRead, rowsAccepted int) {
	if p == nil || p.onProgress == nil {
		return
	}
	if percent < p.lastPercent {
		percent = p.lastPercent
	}
	p.lastPercent = percent
	p.onProgress(models.LoadProgress{
		Stage:        stage,
		Percent:      percent,
		RowsRead:     rowsRead,
		RowsAccepted: rowsAccepted,
	})
}

func emit(onProgress ProgressFunc, progress models.LoadProgress) {
	if onProgress != nil {
		onProgress(progress)
	}
}
