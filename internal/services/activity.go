package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aawaaz/incident-server/internal/models"
	"github.com/aawaaz/incident-server/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActivityLogService records report lifecycle events for the author dashboard.
type ActivityLogService struct {
	store  store.Store
	logger *zap.SugaredLogger
}

// NewActivityLogService creates a new activity log service
func NewActivityLogService(st store.Store, logger *zap.SugaredLogger) *ActivityLogService {
	return &ActivityLogService{store: st, logger: logger}
}

// Log records a lifecycle event on reportID.
func (s *ActivityLogService) Log(ctx context.Context, reportID string, activityType models.ActivityType, description string) error {
	entry := &models.ActivityLog{
		ID:                uuid.NewString(),
		ReportID:          reportID,
		ActivityType:      activityType,
		ActionDescription: description,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.store.LogActivity(ctx, entry); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}

	s.logger.Infow("Activity logged",
		"report_id", reportID,
		"type", activityType,
		"action", description,
	)
	return nil
}

// FetchByReport returns the activity on a report, newest first.
func (s *ActivityLogService) FetchByReport(ctx context.Context, reportID string) ([]models.ActivityLog, error) {
	return s.store.ListActivity(ctx, reportID)
}
