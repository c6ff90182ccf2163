package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QueueMessage is the loose inbound shape consumed from the email queue.
// Producers are inconsistent about field names, so several aliases are
// accepted and resolved in a fixed order.
type QueueMessage struct {
	RequestID string `json:"request_id,omitempty"`

	ToEmail   string `json:"to_email,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
	Email     string `json:"email,omitempty"`

	Subject string `json:"subject,omitempty"`
	Title   string `json:"title,omitempty"`

	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
	Body    string `json:"body,omitempty"`

	HTMLContent string `json:"html_content,omitempty"`

	TemplateCode      string            `json:"template_code,omitempty"`
	TemplateLanguage  string            `json:"template_language,omitempty"`
	TemplateVariables map[string]string `json:"template_variables,omitempty"`

	CorrelationID string                 `json:"correlation_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// TemplateRef points a delivery request at a versioned template instead of
// raw content.
type TemplateRef struct {
	Code      string
	Language  string
	Variables map[string]string
}

// DeliveryRequest is the canonical, validated form of a queue message or API
// call. It is immutable once constructed; rendering produces a separate
// RenderedContent value.
type DeliveryRequest struct {
	RequestID     string
	Recipient     string
	Subject       string
	BodyText      string
	BodyHTML      string
	Template      *TemplateRef
	CorrelationID string
	Metadata      map[string]interface{}
}

const (
	defaultSubject = "Notification"
	defaultContent = "You have a new notification"
)

// ResolveDeliveryRequest deserializes a raw queue payload and normalizes it
// into a DeliveryRequest. The fallback order per field is fixed: recipient
// from (to_email, user_email, email), subject from (subject, title, default),
// content from (content, message, body, default). A payload with no usable
// recipient is a poison message and yields a MalformedMessageError.
func ResolveDeliveryRequest(raw []byte) (*DeliveryRequest, error) {
	var msg QueueMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &MalformedMessageError{Reason: "invalid JSON: " + err.Error()}
	}
	return msg.Resolve()
}

// Resolve applies the field-mapping fallback chain and validates the result.
func (m *QueueMessage) Resolve() (*DeliveryRequest, error) {
	recipient := firstNonEmpty(m.ToEmail, m.UserEmail, m.Email)
	if recipient == "" {
		return nil, &MalformedMessageError{Reason: "no usable recipient in to_email, user_email, or email"}
	}

	requestID := m.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	req := &DeliveryRequest{
		RequestID:     requestID,
		Recipient:     recipient,
		Subject:       firstNonEmpty(m.Subject, m.Title, defaultSubject),
		BodyText:      firstNonEmpty(m.Content, m.Message, m.Body, defaultContent),
		BodyHTML:      m.HTMLContent,
		CorrelationID: m.CorrelationID,
		Metadata:      m.Metadata,
	}

	if m.TemplateCode != "" {
		language := m.TemplateLanguage
		if language == "" {
			language = "en"
		}
		variables := m.TemplateVariables
		if variables == nil {
			variables = map[string]string{}
		}
		req.Template = &TemplateRef{
			Code:      m.TemplateCode,
			Language:  language,
			Variables: variables,
		}
	}

	return req, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
