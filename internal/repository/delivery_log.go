package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/signalworks/email-delivery-service/internal/models"
)

// DeliveryLogStore persists delivery records. It is the single source of
// truth for retry counts; consumers must never track attempts in memory
// because the worker can restart between redeliveries.
type DeliveryLogStore struct {
	db *gorm.DB
}

// NewDeliveryLogStore creates a new DeliveryLogStore.
func NewDeliveryLogStore(db *gorm.DB) *DeliveryLogStore {
	// Auto-migrate the schema
	db.AutoMigrate(&models.DeliveryLog{})
	return &DeliveryLogStore{db: db}
}

// GetByRequestID retrieves the record for a request id, or nil if none exists.
func (s *DeliveryLogStore) GetByRequestID(requestID string) (*models.DeliveryLog, error) {
	var record models.DeliveryLog
	err := s.db.First(&record, "request_id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new delivery record.
func (s *DeliveryLogStore) Create(record *models.DeliveryLog) error {
	return s.db.Create(record).Error
}

// Save writes the record back, bumping UpdatedAt.
func (s *DeliveryLogStore) Save(record *models.DeliveryLog) error {
	record.UpdatedAt = time.Now().UTC()
	return s.db.Save(record).Error
}

// GetOrCreate fetches the record for the request, creating one in the
// processing state on first sight. Existing records are flipped back to
// processing so a retry attempt is visible while in flight.
func (s *DeliveryLogStore) GetOrCreate(req *models.DeliveryRequest, maxRetries int) (*models.DeliveryLog, error) {
	record, err := s.GetByRequestID(req.RequestID)
	if err != nil {
		return nil, err
	}

	if record == nil {
		record = &models.DeliveryLog{
			RequestID:     req.RequestID,
			CorrelationID: req.CorrelationID,
			Recipient:     req.Recipient,
			Subject:       req.Subject,
			BodyText:      req.BodyText,
			BodyHTML:      req.BodyHTML,
			Status:        models.StatusProcessing,
			MaxRetries:    maxRetries,
		}
		if req.Template != nil {
			record.TemplateCode = req.Template.Code
			record.TemplateVariables = req.Template.Variables
		}
		if err := s.Create(record); err != nil {
			return nil, err
		}
		return record, nil
	}

	record.Status = models.StatusProcessing
	if err := s.Save(record); err != nil {
		return nil, err
	}
	return record, nil
}

// CountByStatus aggregates record counts per status for the metrics endpoint.
func (s *DeliveryLogStore) CountByStatus() (map[models.DeliveryStatus]int64, error) {
	type row struct {
		Status models.DeliveryStatus
		Count  int64
	}
	var rows []row
	err := s.db.Model(&models.DeliveryLog{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.DeliveryStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
