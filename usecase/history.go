package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domainHistory "github.com/truthlens/truthlens/domains/history"
	pkgError "github.com/truthlens/truthlens/pkg/error"
)

type historyService struct {
	db *gorm.DB
}

// NewHistoryService builds the persistence layer for verification
// records and runs the schema migration.
func NewHistoryService(db *gorm.DB) (domainHistory.IHistoryUsecase, error) {
	if err := db.AutoMigrate(&domainHistory.Record{}); err != nil {
		return nil, err
	}
	return &historyService{db: db}, nil
}

// SaveAsync persists a record off the request path. A failed save only
// costs a history entry, never the verdict, so errors are just logged.
func (s *historyService) SaveAsync(record domainHistory.Record) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Save(ctx, record); err != nil {
			logrus.WithError(err).WithField("slug", record.Slug).Error("[HISTORY] Failed to save record")
		}
	}()
}

func (s *historyService) Save(ctx context.Context, record domainHistory.Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

func (s *historyService) List(ctx context.Context, limit int) ([]domainHistory.Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []domainHistory.Record
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *historyService) GetBySlug(ctx context.Context, slug string) (domainHistory.Record, error) {
	var record domainHistory.Record
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return record, pkgError.NotFoundError("history record not found")
		}
		return record, err
	}
	return record, nil
}

func (s *historyService) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domainHistory.Record{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgError.NotFoundError("history record not found")
	}
	return nil
}
