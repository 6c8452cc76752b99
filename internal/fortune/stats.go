package fortune

import "context"

// HistoryStats summarizes a user's reading history.
type HistoryStats struct {
	TotalReadings   int64    `json:"total_readings"`
	FeaturesUsed    int64    `json:"features_used"`
	AverageRating   *float64 `json:"average_rating"`
	MostUsedFeature string   `json:"most_used_feature,omitempty"`
	MostUsedCount   int64    `json:"most_used_count"`
}

func (r *Repo) UserHistoryStats(ctx context.Context, userID uint64) (*HistoryStats, error) {
	var stats HistoryStats

	if err := r.db.WithContext(ctx).Model(&ReadingHistory{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalReadings).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&ReadingHistory{}).
		Where("user_id = ?", userID).
		Distinct("feature_id").
		Count(&stats.FeaturesUsed).Error; err != nil {
		return nil, err
	}

	var avg *float64
	if err := r.db.WithContext(ctx).Model(&ReadingHistory{}).
		Where("user_id = ? AND rating IS NOT NULL", userID).
		Select("AVG(rating)").
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	stats.AverageRating = avg

	var top struct {
		FeatureID string
		Cnt       int64
	}
	err := r.db.WithContext(ctx).Model(&ReadingHistory{}).
		Where("user_id = ?", userID).
		Select("feature_id, COUNT(*) AS cnt").
		Group("feature_id").
		Order("cnt DESC").
		Limit(1).
		Scan(&top).Error
	if err == nil && top.FeatureID != "" {
		var f Feature
		if err := r.db.WithContext(ctx).First(&f, "id = ?", top.FeatureID).Error; err == nil {
			stats.MostUsedFeature = f.Name
		}
		stats.MostUsedCount = top.Cnt
	}

	return &stats, nil
}

func (s *Service) HistoryStats(ctx context.Context, userID uint64) (*HistoryStats, error) {
	return s.repo.UserHistoryStats(ctx, userID)
}
