package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"eduadmin_go/models"
	"eduadmin_go/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MinArchiveDays is the youngest age a log may be archived at.
const MinArchiveDays = 7

// ArchiveStore uploads and fetches log archives.
type ArchiveStore interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// S3ArchiveStore keeps archives in S3 using the v2 SDK.
type S3ArchiveStore struct {
	client *s3.Client
	bucket string
}

func NewS3ArchiveStore(ctx context.Context, region, bucket string) (*S3ArchiveStore, error) {
	if region == "" || bucket == "" {
		return nil, errors.New("AWS region and S3 bucket are required for log archives")
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3ArchiveStore{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3ArchiveStore) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}

func (s *S3ArchiveStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

// LogArchiveService flushes queued activity logs to the database and moves
// old ones to the archive store.
type LogArchiveService struct {
	db       *gorm.DB
	redis    *redis.Client
	archives ArchiveStore
	keepDays int
	cron     *cron.Cron
}

func NewLogArchiveService(db *gorm.DB, rdb *redis.Client, archives ArchiveStore, keepDays int) *LogArchiveService {
	if keepDays < MinArchiveDays {
		keepDays = 30
	}
	return &LogArchiveService{db: db, redis: rdb, archives: archives, keepDays: keepDays}
}

// FlushCachedLogs moves every queued log from Redis into the database.
func (las *LogArchiveService) FlushCachedLogs(ctx context.Context) (int, error) {
	if las.redis == nil {
		return 0, nil
	}
	if las.db == nil {
		return 0, errors.New("database not available")
	}

	keys, err := las.redis.ZRangeByScore(ctx, logsQueueKey, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read log queue: %w", err)
	}

	processed, failed := 0, 0
	for _, key := range keys {
		data, err := las.redis.Get(ctx, key).Result()
		if err == redis.Nil {
			las.redis.ZRem(ctx, logsQueueKey, key)
			continue
		}
		if err != nil {
			failed++
			continue
		}

		var entry models.ActivityLog
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			logrus.WithField("key", key).WithError(err).Error("dropping unreadable cached log")
			las.redis.ZRem(ctx, logsQueueKey, key)
			failed++
			continue
		}
		if err := las.db.WithContext(ctx).Create(&entry).Error; err != nil {
			logrus.WithField("key", key).WithError(err).Error("failed to save cached log")
			failed++
			continue
		}

		pipe := las.redis.Pipeline()
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, logsQueueKey, key)
		if _, err := pipe.Exec(ctx); err != nil {
			logrus.WithField("key", key).WithError(err).Warn("failed to remove flushed log from cache")
		}
		processed++
	}

	if processed > 0 || failed > 0 {
		logrus.WithFields(logrus.Fields{"flushed": processed, "failed": failed}).Info("flushed cached activity logs")
	}
	return processed, nil
}

// ArchiveOldLogs archives logs older than daysOld days and deletes them
// from the database once the upload succeeded.
func (las *LogArchiveService) ArchiveOldLogs(ctx context.Context, daysOld int) (*models.LogArchive, error) {
	if daysOld < MinArchiveDays {
		return nil, fmt.Errorf("minimum archive age is %d days", MinArchiveDays)
	}
	if las.db == nil || las.archives == nil {
		return nil, errors.New("log archiving is not configured")
	}
	cutoff := time.Now().AddDate(0, 0, -daysOld)

	var logs []models.ActivityLog
	const batchSize = 1000
	for offset := 0; ; offset += batchSize {
		var batch []models.ActivityLog
		err := las.db.WithContext(ctx).
			Where("created_at < ?", cutoff).
			Order("created_at ASC").
			Limit(batchSize).
			Offset(offset).
			Find(&batch).Error
		if err != nil {
			return nil, fmt.Errorf("failed to fetch logs for archiving: %w", err)
		}
		logs = append(logs, batch...)
		if len(batch) < batchSize {
			break
		}
	}
	if len(logs) == 0 {
		return nil, nil
	}

	fileName := fmt.Sprintf("activity_logs_%s.zip", cutoff.Format("2006-01-02"))
	archive, err := BuildLogArchive(logs, fileName, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("logs/archived/%d/%02d/%s", cutoff.Year(), cutoff.Month(), fileName)
	record := models.LogArchive{
		FileName:    fileName,
		S3Key:       key,
		StartDate:   logs[0].CreatedAt,
		EndDate:     cutoff,
		RecordCount: len(logs),
		FileSize:    int64(len(archive)),
		Status:      "completed",
	}

	if err := las.archives.Upload(ctx, key, archive, "application/zip"); err != nil {
		record.Status, record.Error = "failed", err.Error()
		if dbErr := las.db.WithContext(ctx).Create(&record).Error; dbErr != nil {
			logrus.WithError(dbErr).Error("failed to save archive metadata")
		}
		return nil, fmt.Errorf("failed to upload archive: %w", err)
	}

	res := las.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to delete archived logs: %w", res.Error)
	}
	if err := las.db.WithContext(ctx).Create(&record).Error; err != nil {
		logrus.WithError(err).Error("failed to save archive metadata")
	}

	logrus.WithFields(logrus.Fields{
		"key":     key,
		"records": len(logs),
		"deleted": res.RowsAffected,
	}).Info("archived activity logs")
	return &record, nil
}

// BuildLogArchive writes logs into a zip holding JSON, CSV and metadata files.
func BuildLogArchive(logs []models.ActivityLog, fileName string, now time.Time) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	jsonFile, err := zw.Create("activity_logs.json")
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(jsonFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"export_date":    now,
		"record_count":   len(logs),
		"format_version": "1.0",
		"logs":           logs,
	}); err != nil {
		return nil, fmt.Errorf("failed to encode logs: %w", err)
	}

	metaFile, err := zw.Create("metadata.json")
	if err != nil {
		return nil, err
	}
	meta := map[string]any{
		"file_name":    fileName,
		"created_at":   now,
		"record_count": len(logs),
	}
	if len(logs) > 0 {
		meta["date_range"] = map[string]any{"start": logs[0].CreatedAt, "end": logs[len(logs)-1].CreatedAt}
	}
	if err := json.NewEncoder(metaFile).Encode(meta); err != nil {
		return nil, err
	}

	csvFile, err := zw.Create("activity_logs.csv")
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(csvFile)
	_ = w.Write([]string{"ID", "Actor", "Action", "Resource", "Resource ID", "IP Address", "User Agent", "Created At", "Details"})
	for _, l := range logs {
		details := ""
		if !l.Details.IsNull() {
			details = string(l.Details)
		}
		_ = w.Write([]string{
			strconv.FormatUint(uint64(l.ID), 10),
			l.Actor,
			l.Action,
			l.Resource,
			l.ResourceID,
			l.IPAddress,
			l.UserAgent,
			l.CreatedAt.Format("2006-01-02 15:04:05"),
			details,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Archives lists archive records, newest first.
func (las *LogArchiveService) Archives(ctx context.Context) ([]models.LogArchive, error) {
	if las.db == nil {
		return []models.LogArchive{}, nil
	}
	archives := []models.LogArchive{}
	if err := las.db.WithContext(ctx).Order("created_at DESC").Find(&archives).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve archives: %w", err)
	}
	return archives, nil
}

// DownloadArchive opens the stored zip of one archive record.
func (las *LogArchiveService) DownloadArchive(ctx context.Context, id uint) (io.ReadCloser, string, error) {
	if las.db == nil || las.archives == nil {
		return nil, "", errors.New("log archiving is not configured")
	}
	var archive models.LogArchive
	if err := las.db.WithContext(ctx).First(&archive, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", &utils.NotFoundError{Resource: "archive", ID: strconv.FormatUint(uint64(id), 10)}
		}
		return nil, "", err
	}
	body, err := las.archives.Download(ctx, archive.S3Key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download archive: %w", err)
	}
	return body, archive.FileName, nil
}

// Start schedules flush and archive runs on spec (robfig/cron syntax).
func (las *LogArchiveService) Start(spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		las.RunMaintenance(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid LOG_ARCHIVE_CRON %q: %w", spec, err)
	}
	las.cron = c
	c.Start()
	logrus.WithField("schedule", spec).Info("log maintenance scheduled")
	return nil
}

// Stop halts the schedule and waits for a running job.
func (las *LogArchiveService) Stop() {
	if las.cron != nil {
		<-las.cron.Stop().Done()
	}
}

// RunMaintenance flushes the cache and archives old logs once.
func (las *LogArchiveService) RunMaintenance(ctx context.Context) {
	if _, err := las.FlushCachedLogs(ctx); err != nil {
		logrus.WithError(err).Warn("flushing cached logs failed")
	}
	if las.archives == nil || las.db == nil {
		return
	}
	if _, err := las.ArchiveOldLogs(ctx, las.keepDays); err != nil {
		logrus.WithError(err).Warn("archiving old logs failed")
	}
}
