package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockledger/stockledger/internal/model"
)

// errSequenceRace marks a lost compare-and-swap; the allocation is retried.
var errSequenceRace = errors.New("sequence advanced concurrently")

// SequenceRepository allocates monotonically increasing counter values.
// Allocation is idempotent per attempt and therefore safe to retry, unlike
// stock mutation.
type SequenceRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

type sequenceRepo struct {
	db         *gorm.DB
	maxRetries uint64
}

func NewSequenceRepo(db *gorm.DB, maxRetries uint64) SequenceRepository {
	if maxRetries == 0 {
		maxRetries = 5
	}
	return &sequenceRepo{db: db, maxRetries: maxRetries}
}

func (r *sequenceRepo) Next(ctx context.Context, name string) (int64, error) {
	var next int64
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 5 * time.Millisecond
	expo.MaxInterval = 200 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, r.maxRetries), ctx)

	err := backoff.Retry(func() error {
		v, err := r.tryNext(ctx, name)
		if err == nil {
			next = v
			return nil
		}
		if errors.Is(err, errSequenceRace) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	return next, err
}

func (r *sequenceRepo) tryNext(ctx context.Context, name string) (int64, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Sequence{Name: name}).Error; err != nil {
		return 0, err
	}

	var seq model.Sequence
	if err := db.Take(&seq, "name = ?", name).Error; err != nil {
		return 0, err
	}

	result := db.Model(&model.Sequence{}).
		Where("name = ? AND value = ?", name, seq.Value).
		Updates(map[string]interface{}{"value": seq.Value + 1, "updated_at": time.Now()})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, errSequenceRace
	}
	return seq.Value + 1, nil
}
