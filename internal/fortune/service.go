package fortune

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Mamog1381/fortune/internal/common"
)

// Enqueuer hands a pending reading to the work queue. Satisfied by the
// rabbitmq publisher; tests inject a recording stub.
type Enqueuer interface {
	PublishReading(ctx context.Context, readingID string) error
}

type Service struct {
	repo  *Repo
	queue Enqueuer
}

func NewService(repo *Repo, queue Enqueuer) *Service {
	return &Service{repo: repo, queue: queue}
}

type CreateReadingInput struct {
	FeatureType string
	TextInput   string
	ImagePath   string
	Language    string
}

// CreateReading validates the input against the feature's declared input
// type, persists the reading in pending state and enqueues processing. The
// enqueue call returns before any processing happens.
func (s *Service) CreateReading(ctx context.Context, userID uint64, in CreateReadingInput) (*Reading, error) {
	if in.FeatureType == "" {
		return nil, common.Validationf("feature_type is required")
	}
	switch in.Language {
	case "":
		in.Language = "en"
	case "en", "fa":
	default:
		return nil, common.Validationf("unsupported language %q", in.Language)
	}

	feature, err := s.repo.GetActiveFeatureByType(ctx, in.FeatureType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.Validationf("feature %q is not available", in.FeatureType)
		}
		return nil, err
	}

	switch feature.InputType {
	case InputText:
		if in.TextInput == "" {
			return nil, common.Validationf("text input is required for this feature")
		}
	case InputImage:
		if in.ImagePath == "" {
			return nil, common.Validationf("image is required for this feature")
		}
	case InputTextImage:
		if in.TextInput == "" && in.ImagePath == "" {
			return nil, common.Validationf("either text or image input is required for this feature")
		}
	}

	id, err := NewReadingID()
	if err != nil {
		return nil, err
	}

	reading := &Reading{
		ID:        id,
		UserID:    userID,
		FeatureID: feature.ID,
		Feature:   feature,
		TextInput: in.TextInput,
		ImagePath: in.ImagePath,
		Language:  in.Language,
		Status:    StatusPending,
	}
	if err := s.repo.CreateReading(ctx, reading); err != nil {
		return nil, err
	}

	if err := s.queue.PublishReading(ctx, reading.ID); err != nil {
		return nil, err
	}
	return reading, nil
}

func (s *Service) GetUserReading(ctx context.Context, userID uint64, id string) (*Reading, error) {
	reading, err := s.repo.GetUserReading(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return reading, nil
}

func (s *Service) ListUserReadings(ctx context.Context, userID uint64, status string, limit int) ([]Reading, error) {
	return s.repo.ListUserReadings(ctx, userID, status, limit)
}

func (s *Service) ListFeatures(ctx context.Context) ([]Feature, error) {
	return s.repo.ListActiveFeatures(ctx)
}

func (s *Service) GetFeatureByType(ctx context.Context, featureType string) (*Feature, error) {
	f, err := s.repo.GetActiveFeatureByType(ctx, featureType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// SubmitFeedback accepts a rating for a completed reading. Repeat submissions
// overwrite the previous rating.
func (s *Service) SubmitFeedback(ctx context.Context, userID uint64, readingID string, rating int, feedback string) (*ReadingHistory, error) {
	if rating < 1 || rating > 5 {
		return nil, common.Validationf("rating must be between 1 and 5")
	}

	reading, err := s.GetUserReading(ctx, userID, readingID)
	if err != nil {
		return nil, err
	}
	if reading.Status != StatusCompleted {
		return nil, common.Validationf("can only provide feedback for completed readings")
	}

	return s.repo.UpsertFeedback(ctx, reading, rating, feedback)
}

func (s *Service) ListHistory(ctx context.Context, userID uint64, limit int) ([]ReadingHistory, error) {
	return s.repo.ListUserHistory(ctx, userID, limit)
}
