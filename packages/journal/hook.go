package journal

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"

	"github.com/abdul-hamid-achik/qakit/packages/log"
)

// Hook writes every log entry carrying a direction field to a Store.
type Hook struct {
	store   *Store
	timeout time.Duration
}

func NewHook(store *Store) *Hook {
	return &Hook{store: store, timeout: 5 * time.Second}
}

// Levels covers everything up to debug, where the HTTP clients log.
func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels[:logrus.DebugLevel+1]
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	direction, ok := entry.Data[log.DirectionKey].(string)
	if !ok {
		return nil
	}

	e := Exchange{
		Direction: direction,
		LoggedAt:  entry.Time,
	}
	e.CorrelationID, _ = entry.Data[log.CorrelationIDKey].(string)
	e.Method, _ = entry.Data[log.MethodKey].(string)
	e.URL, _ = entry.Data[log.URLKey].(string)
	e.Status, _ = entry.Data[log.StatusKey].(int)
	e.Body, _ = entry.Data[log.BodyKey].(string)

	ctx := entry.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if _, err := h.store.Record(ctx, e); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// Attach adds a Hook for store to logger. When logger is quieter than debug
// it is raised to debug so exchanges reach the hook, and its console output
// is moved behind a writer hook that keeps the previous level.
func Attach(logger *logrus.Logger, store *Store) {
	if !logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.AddHook(&writer.Hook{
			Writer:    logger.Out,
			LogLevels: logrus.AllLevels[:logger.GetLevel()+1],
		})
		logger.SetOutput(io.Discard)
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.AddHook(NewHook(store))
}
