package models

import "time"

// DeliveryStatus tracks an email through its delivery lifecycle.
type DeliveryStatus string

const (
	StatusPending    DeliveryStatus = "pending"
	StatusProcessing DeliveryStatus = "processing"
	StatusSent       DeliveryStatus = "sent"
	StatusFailed     DeliveryStatus = "failed"
	StatusBounced    DeliveryStatus = "bounced"
)

// DeliveryLog is the durable record of one request's processing history.
// Rows are created on first sight of a request id and are never deleted;
// status transitions are monotonic except failed back to processing on retry.
type DeliveryLog struct {
	ID uint `gorm:"primaryKey" json:"-"`

	RequestID     string `gorm:"size:255;uniqueIndex;not null" json:"request_id"`
	CorrelationID string `gorm:"size:255;index" json:"correlation_id,omitempty"`

	Recipient string `gorm:"size:255;not null;index" json:"recipient"`
	Subject   string `gorm:"size:500;not null" json:"subject"`
	BodyText  string `gorm:"type:text" json:"-"`
	BodyHTML  string `gorm:"type:text" json:"-"`

	TemplateCode      string            `gorm:"size:100" json:"template_code,omitempty"`
	TemplateVariables map[string]string `gorm:"serializer:json" json:"template_variables,omitempty"`

	Status     DeliveryStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RetryCount int            `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries int            `gorm:"not null;default:5" json:"max_retries"`

	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// TableName keeps the historical table name used by earlier deployments.
func (DeliveryLog) TableName() string {
	return "email_logs"
}
