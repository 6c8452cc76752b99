package fortune

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateReading(ctx context.Context, reading *Reading) error {
	return r.db.WithContext(ctx).Create(reading).Error
}

func (r *Repo) GetReading(ctx context.Context, id string) (*Reading, error) {
	var reading Reading
	if err := r.db.WithContext(ctx).
		Preload("Feature").
		First(&reading, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reading, nil
}

// GetUserReading scopes the lookup to the owning user.
func (r *Repo) GetUserReading(ctx context.Context, userID uint64, id string) (*Reading, error) {
	var reading Reading
	if err := r.db.WithContext(ctx).
		Preload("Feature").
		Where("id = ? AND user_id = ?", id, userID).
		First(&reading).Error; err != nil {
		return nil, err
	}
	return &reading, nil
}

// ListUserReadings returns the user's readings, newest first.
func (r *Repo) ListUserReadings(ctx context.Context, userID uint64, status string, limit int) ([]Reading, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := r.db.WithContext(ctx).
		Preload("Feature").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var readings []Reading
	if err := q.Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *Repo) MarkProcessing(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Reading{}).
		Where("id = ?", id).
		Update("status", StatusProcessing).Error
}

// MarkCompleted records the interpretation and clears any stale error so a
// completed reading never carries both.
func (r *Repo) MarkCompleted(ctx context.Context, id, interpretation, modelUsed string, tokensUsed int, processingTime float64) error {
	return r.db.WithContext(ctx).Model(&Reading{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          StatusCompleted,
			"interpretation":  interpretation,
			"error_message":   "",
			"model_used":      modelUsed,
			"tokens_used":     tokensUsed,
			"processing_time": processingTime,
		}).Error
}

func (r *Repo) MarkFailed(ctx context.Context, id, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Reading{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         StatusFailed,
			"interpretation": "",
			"error_message":  errMsg,
		}).Error
}

func (r *Repo) GetActiveFeatureByType(ctx context.Context, featureType string) (*Feature, error) {
	var f Feature
	if err := r.db.WithContext(ctx).
		Where("feature_type = ? AND is_active = ?", featureType, true).
		First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repo) ListActiveFeatures(ctx context.Context) ([]Feature, error) {
	var features []Feature
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&features).Error; err != nil {
		return nil, err
	}
	return features, nil
}

func (r *Repo) CreateHistory(ctx context.Context, h *ReadingHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// UpsertFeedback applies get-or-create keyed on the reading and overwrites
// rating/feedback in place: last write wins.
func (r *Repo) UpsertFeedback(ctx context.Context, reading *Reading, rating int, feedback string) (*ReadingHistory, error) {
	var h ReadingHistory
	err := r.db.WithContext(ctx).
		Where("reading_id = ?", reading.ID).
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h = ReadingHistory{
			UserID:    reading.UserID,
			FeatureID: reading.FeatureID,
			ReadingID: reading.ID,
		}
		if err := r.db.WithContext(ctx).Create(&h).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	h.Rating = &rating
	h.Feedback = feedback
	if err := r.db.WithContext(ctx).Model(&h).
		Updates(map[string]any{"rating": rating, "feedback": feedback}).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *Repo) ListUserHistory(ctx context.Context, userID uint64, limit int) ([]ReadingHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []ReadingHistory
	if err := r.db.WithContext(ctx).
		Preload("Feature").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOldFailed purges failed readings older than the cutoff. Returns the
// number of rows removed.
func (r *Repo) DeleteOldFailed(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", StatusFailed, cutoff).
		Delete(&Reading{})
	return res.RowsAffected, res.Error
}
