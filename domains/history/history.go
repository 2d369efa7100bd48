package history

import (
	"context"
	"time"
)

// Record is a persisted verification outcome.
type Record struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Slug        string    `json:"slug" gorm:"uniqueIndex"`
	Title       string    `json:"title"`
	Claim       string    `json:"claim"`
	Kind        string    `json:"kind"`
	Veracity    string    `json:"veracity"`
	Confidence  int       `json:"confidence"`
	Explanation string    `json:"explanation"`
	SourcesJSON string    `json:"-" gorm:"column:sources"`
	Provider    string    `json:"provider"`
	CreatedAt   time.Time `json:"created_at"`
}

// IHistoryUsecase persists and lists verification records. SaveAsync is
// fire-and-forget: failures are logged, never surfaced to the verdict path.
type IHistoryUsecase interface {
	SaveAsync(record Record)
	Save(ctx context.Context, record Record) error
	List(ctx context.Context, limit int) ([]Record, error)
	GetBySlug(ctx context.Context, slug string) (Record, error)
	Delete(ctx context.Context, id string) error
}
