package models

// SendEmailRequest is the synchronous API path for submitting an email.
type SendEmailRequest struct {
	RequestID     string                 `json:"request_id" binding:"omitempty"`
	ToEmail       string                 `json:"to_email" binding:"required,email"`
	Subject       string                 `json:"subject" binding:"required"`
	Content       string                 `json:"content" binding:"required"`
	HTMLContent   string                 `json:"html_content"`
	CorrelationID string                 `json:"correlation_id"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// QueueEmailRequest enqueues an email for asynchronous delivery. The shape
// mirrors the queue message so callers can template or send raw content.
type QueueEmailRequest struct {
	RequestID         string                 `json:"request_id" binding:"omitempty"`
	ToEmail           string                 `json:"to_email" binding:"required,email"`
	Subject           string                 `json:"subject"`
	Content           string                 `json:"content"`
	HTMLContent       string                 `json:"html_content"`
	TemplateCode      string                 `json:"template_code"`
	TemplateLanguage  string                 `json:"template_language"`
	TemplateVariables map[string]string      `json:"template_variables"`
	CorrelationID     string                 `json:"correlation_id"`
	Metadata          map[string]interface{} `json:"metadata"`
}

// CreateTemplateRequest creates the first version of a template.
type CreateTemplateRequest struct {
	TemplateCode string `json:"template_code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	Subject      string `json:"subject" binding:"required"`
	BodyHTML     string `json:"body_html" binding:"required"`
	BodyText     string `json:"body_text"`
	TemplateType string `json:"template_type" binding:"omitempty,oneof=email push sms"`
	Language     string `json:"language"`
	CreatedBy    string `json:"created_by"`
}

// UpdateTemplateRequest patches a template, producing a new version. Empty
// fields keep the current value.
type UpdateTemplateRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Subject      string `json:"subject"`
	BodyHTML     string `json:"body_html"`
	BodyText     string `json:"body_text"`
	Status       string `json:"status" binding:"omitempty,oneof=active draft archived"`
	ChangeReason string `json:"change_reason"`
}

// RenderTemplateRequest previews a template render with concrete variables.
type RenderTemplateRequest struct {
	Variables map[string]string `json:"variables" binding:"required"`
	Language  string            `json:"language"`
}
