package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"eduadmin_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	logsQueueKey = "logs:queue"
	logKeyPrefix = "logs:entry:"
	cachedLogTTL = 7 * 24 * time.Hour
)

// ActivityRecorder stores audit entries. With Redis configured entries are
// queued and flushed to the database by LogArchiveService; otherwise they
// are written directly.
type ActivityRecorder struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewActivityRecorder(db *gorm.DB, rdb *redis.Client) *ActivityRecorder {
	return &ActivityRecorder{db: db, redis: rdb}
}

// Record queues or writes one entry.
func (r *ActivityRecorder) Record(ctx context.Context, entry models.ActivityLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if r.redis != nil {
		err := r.enqueue(ctx, entry)
		if err == nil {
			return nil
		}
		logrus.WithError(err).Warn("activity log cache failed, writing to database")
	}
	if r.db == nil {
		return errors.New("no activity log storage configured")
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *ActivityRecorder) enqueue(ctx context.Context, entry models.ActivityLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := logKeyPrefix + uuid.NewString()
	pipe := r.redis.TxPipeline()
	pipe.Set(ctx, key, data, cachedLogTTL)
	pipe.ZAdd(ctx, logsQueueKey, &redis.Z{Score: float64(entry.CreatedAt.Unix()), Member: key})
	_, err = pipe.Exec(ctx)
	return err
}

// ActivityFilter narrows an activity log query.
type ActivityFilter struct {
	Actor    string
	Resource string
	Action   string
	Page     int
	PageSize int
}

// List returns entries newest first with the total match count.
func (r *ActivityRecorder) List(ctx context.Context, f ActivityFilter) ([]models.ActivityLog, int64, error) {
	if r.db == nil {
		return []models.ActivityLog{}, 0, nil
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 200 {
		f.PageSize = 50
	}
	q := r.db.WithContext(ctx).Model(&models.ActivityLog{})
	if f.Actor != "" {
		q = q.Where("actor = ?", f.Actor)
	}
	if f.Resource != "" {
		q = q.Where("resource = ?", f.Resource)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	logs := []models.ActivityLog{}
	err := q.Order("created_at DESC").Limit(f.PageSize).Offset((f.Page - 1) * f.PageSize).Find(&logs).Error
	return logs, total, err
}
