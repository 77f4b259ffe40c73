package resource

import (
	"context"
	"time"

	"github.com/taskdata/taskd"
	"go.uber.org/zap"
)

// NewLoggingService wraps a Service so every operation logs its outcome and
// duration at debug level.
func NewLoggingService(logger *zap.Logger, underlying Service) *loggingService {
	return &loggingService{
		logger:     logger,
		underlying: underlying,
	}
}

type loggingService struct {
	logger     *zap.Logger
	underlying Service
}

var _ Service = (*loggingService)(nil)

func (l loggingService) ListOwned(ctx context.Context, owner taskd.ID, f Filter) (list RecordList, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to list records", zap.Error(err), dur)
			return
		}
		l.logger.Debug("records listed", zap.Int("count", list.Len()), dur)
	}(time.Now())
	return l.underlying.ListOwned(ctx, owner, f)
}

func (l loggingService) GetOwned(ctx context.Context, owner, id taskd.ID) (rec interface{}, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to find record by ID", zap.Error(err), dur)
			return
		}
		l.logger.Debug("record find by ID", dur)
	}(time.Now())
	return l.underlying.GetOwned(ctx, owner, id)
}

func (l loggingService) Create(ctx context.Context, owner taskd.ID, payload map[string]interface{}) (rec interface{}, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to create record", zap.Error(err), dur)
			return
		}
		l.logger.Debug("record create", dur)
	}(time.Now())
	return l.underlying.Create(ctx, owner, payload)
}

func (l loggingService) Update(ctx context.Context, owner, id taskd.ID, payload map[string]interface{}) (rec interface{}, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to update record", zap.Error(err), dur)
			return
		}
		l.logger.Debug("record update", dur)
	}(time.Now())
	return l.underlying.Update(ctx, owner, id, payload)
}

func (l loggingService) Delete(ctx context.Context, owner, id taskd.ID) (deleted bool, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to delete record", zap.Error(err), dur)
			return
		}
		l.logger.Debug("record delete", zap.Bool("deleted", deleted), dur)
	}(time.Now())
	return l.underlying.Delete(ctx, owner, id)
}

func (l loggingService) Toggle(ctx context.Context, owner, id taskd.ID, field string) (rec interface{}, err error) {
	defer func(start time.Time) {
		dur := zap.Duration("took", time.Since(start))
		if err != nil {
			l.logger.Debug("failed to toggle record field", zap.Error(err), dur)
			return
		}
		l.logger.Debug("record field toggle", dur)
	}(time.Now())
	return l.underlying.Toggle(ctx, owner, id, field)
}
