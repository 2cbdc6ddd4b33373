package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/repositories"
)

// auditor writes activity log entries inside the caller's transaction and
// announces them after commit
type auditor struct {
	repo      repositories.IActivityRepository
	publisher ActivityPublisher
	logger    zerolog.Logger
}

func newAuditor(repo repositories.IActivityRepository, publisher ActivityPublisher, logger zerolog.Logger) *auditor {
	return &auditor{repo: repo, publisher: publisher, logger: logger}
}

// record appends an entry. Call it inside the transaction of the change it describes.
func (a *auditor) record(ctx context.Context, actor models.Actor, action models.ActivityAction, description string) (*models.ActivityLog, error) {
	entry := &models.ActivityLog{
		Action:      action,
		Description: description,
	}
	if actor.UserID > 0 {
		userID := actor.UserID
		entry.UserID = &userID
	}

	if err := a.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("error writing activity log: %w", err)
	}
	return entry, nil
}

// announce publishes a committed entry
func (a *auditor) announce(ctx context.Context, entry *models.ActivityLog, entityID int64) {
	if entry == nil {
		return
	}

	a.logger.Info().
		Str("action", string(entry.Action)).
		Int64("entityID", entityID).
		Msg(entry.Description)

	if a.publisher != nil {
		a.publisher.Publish(ctx, entry.Event(entityID))
	}
}
