package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
)

// DemoNotifier forwards a stored demo request to sales.
type DemoNotifier interface {
	SendDemoRequestNotification(req *models.DemoRequest) error
}

type DemoRequestService struct {
	db       *gorm.DB
	notifier DemoNotifier
}

func NewDemoRequestService(db *gorm.DB, notifier DemoNotifier) *DemoRequestService {
	return &DemoRequestService{db: db, notifier: notifier}
}

// Submit stores the request and notifies sales. A failed notification is
// logged; the request is still kept with Notified=false.
func (s *DemoRequestService) Submit(ctx context.Context, req *models.DemoRequest) error {
	req.ID = uuid.NewString()
	req.Notified = false
	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return err
	}

	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.SendDemoRequestNotification(req); err != nil {
		logger.Error("Failed to forward demo request", err, logger.Fields{"demo_request_id": req.ID})
		return nil
	}

	req.Notified = true
	return s.db.WithContext(ctx).Model(req).Update("notified", true).Error
}
