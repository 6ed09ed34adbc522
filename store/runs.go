package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/flowkit/errors"
)

// CreateRun inserts a new workflow run record.
func (s *Store) CreateRun(ctx context.Context, run *WorkflowRun) error {
	if run.RunID == "" {
		return apperrors.MissingField("run_id")
	}
	if run.Status == "" {
		run.Status = StatusPlanned
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.AlreadyExists("run").WithDetail("run_id", run.RunID)
		}
		return apperrors.StoreError(err)
	}
	return nil
}

// GetRun fetches a run by its run id.
func (s *Store) GetRun(ctx context.Context, runID string) (*WorkflowRun, error) {
	var run WorkflowRun
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("run", runID)
		}
		return nil, apperrors.StoreError(err)
	}
	return &run, nil
}

// FindRun fetches a run by run id or name, most recent first when names
// were reused.
func (s *Store) FindRun(ctx context.Context, nameOrID string) (*WorkflowRun, error) {
	var run WorkflowRun
	err := s.db.WithContext(ctx).
		Where("run_id = ? OR name = ?", nameOrID, nameOrID).
		Order("created_at DESC, run_id DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("run", nameOrID)
		}
		return nil, apperrors.StoreError(err)
	}
	return &run, nil
}

// UpdateStatus transitions a run to a new status. Detail may carry broker
// output or an error summary; empty detail leaves the previous one intact.
func (s *Store) UpdateStatus(ctx context.Context, runID, status, detail string) error {
	updates := map[string]interface{}{"status": status}
	if detail != "" {
		updates["detail"] = detail
	}
	result := s.db.WithContext(ctx).Model(&WorkflowRun{}).Where("run_id = ?", runID).Updates(updates)
	if result.Error != nil {
		return apperrors.StoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("run", runID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. A non-positive
// limit returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]WorkflowRun, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC, run_id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []WorkflowRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, apperrors.StoreError(err)
	}
	return runs, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (*WorkflowRun, error) {
	var run WorkflowRun
	err := s.db.WithContext(ctx).Order("created_at DESC, run_id DESC").First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("run", "latest")
		}
		return nil, apperrors.StoreError(err)
	}
	return &run, nil
}
