package store

import (
	"context"
	"fmt"

	"github.com/goldenstat/goldenstat/models"
)

// AddPendingReview queues a resolution outcome for human review. An identical
// pending item (same tournament, raw name and action) is not duplicated on
// re-runs.
func (s *Store) AddPendingReview(ctx context.Context, r *models.PendingReview) error {
	exists, err := s.db.NewSelect().Model((*models.PendingReview)(nil)).
		Where("tournament_id = ? AND raw_name = ? AND action = ? AND status = ?",
			r.TournamentID, r.RawName, r.Action, models.ReviewPending).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("check pending review for %q: %w", r.RawName, err)
	}
	if exists {
		return nil
	}

	r.Status = models.ReviewPending
	if _, err := s.db.NewInsert().Model(r).Exec(ctx); err != nil {
		return fmt.Errorf("add pending review for %q: %w", r.RawName, err)
	}
	return nil
}

// PendingReviews lists review items by status, newest first.
func (s *Store) PendingReviews(ctx context.Context, status string, limit int) ([]models.PendingReview, error) {
	var reviews []models.PendingReview
	q := s.db.NewSelect().Model(&reviews).Order("created_at DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// ReviewByID fetches one review item.
func (s *Store) ReviewByID(ctx context.Context, id int) (*models.PendingReview, error) {
	r := new(models.PendingReview)
	if err := s.db.NewSelect().Model(r).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, fmt.Errorf("review %d: %w", id, err)
	}
	return r, nil
}

// SetReviewStatus closes a review item.
func (s *Store) SetReviewStatus(ctx context.Context, id int, status string) error {
	_, err := s.db.NewUpdate().Model((*models.PendingReview)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set review %d %s: %w", id, status, err)
	}
	return nil
}

// CorrectionApplied reports whether a named correction-log entry has run.
func (s *Store) CorrectionApplied(ctx context.Context, name string) (bool, error) {
	exists, err := s.db.NewSelect().Model((*models.Correction)(nil)).
		Where("name = ?", name).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check correction %q: %w", name, err)
	}
	return exists, nil
}

// MarkCorrectionApplied records a correction-log entry as done.
func (s *Store) MarkCorrectionApplied(ctx context.Context, name, kind string) error {
	c := &models.Correction{Name: name, Kind: kind}
	_, err := s.db.NewInsert().Model(c).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark correction %q: %w", name, err)
	}
	return nil
}
