package models

import "time"

// TemplateStatus is the publication state of a template.
type TemplateStatus string

const (
	TemplateStatusActive   TemplateStatus = "active"
	TemplateStatusDraft    TemplateStatus = "draft"
	TemplateStatusArchived TemplateStatus = "archived"
)

// TemplateType is the channel a template targets.
type TemplateType string

const (
	TemplateTypeEmail TemplateType = "email"
	TemplateTypePush  TemplateType = "push"
	TemplateTypeSMS   TemplateType = "sms"
)

// Template is one version of a (code, language) template pair. Exactly one
// row per pair carries IsCurrent=true; updates insert a new row with the
// next version number instead of mutating content in place.
type Template struct {
	ID string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	TemplateCode string `gorm:"size:100;not null;index:idx_templates_code_lang" json:"template_code"`
	Language     string `gorm:"size:10;not null;default:'en';index:idx_templates_code_lang" json:"language"`

	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Subject  string `gorm:"size:500;not null" json:"subject"`
	BodyHTML string `gorm:"type:text;not null" json:"body_html"`
	BodyText string `gorm:"type:text" json:"body_text,omitempty"`

	TemplateType TemplateType   `gorm:"size:20;not null;default:'email'" json:"template_type"`
	Variables    []string       `gorm:"serializer:json" json:"variables"`
	Status       TemplateStatus `gorm:"size:20;not null;default:'active'" json:"status"`

	Version   int  `gorm:"not null;default:1" json:"version"`
	IsCurrent bool `gorm:"not null;default:true" json:"is_current"`

	CreatedBy string    `gorm:"size:255" json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Template) TableName() string {
	return "email_templates"
}

// TemplateVersion is an immutable snapshot of a template version taken when
// a newer version supersedes it.
type TemplateVersion struct {
	ID string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	TemplateCode string `gorm:"size:100;not null;index" json:"template_code"`
	Language     string `gorm:"size:10;not null;default:'en';index" json:"language"`
	Version      int    `gorm:"not null" json:"version"`

	Subject  string `gorm:"size:500;not null" json:"subject"`
	BodyHTML string `gorm:"type:text;not null" json:"body_html"`
	BodyText string `gorm:"type:text" json:"body_text,omitempty"`

	Variables    []string `gorm:"serializer:json" json:"variables"`
	ChangeReason string   `gorm:"type:text" json:"change_reason,omitempty"`

	CreatedBy string    `gorm:"size:255" json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (TemplateVersion) TableName() string {
	return "template_versions"
}

// RenderedContent is the variable-substituted output of a template render.
type RenderedContent struct {
	TemplateCode string `json:"template_code,omitempty"`
	Language     string `json:"language,omitempty"`
	Subject      string `json:"subject"`
	BodyHTML     string `json:"body_html"`
	BodyText     string `json:"body_text,omitempty"`
}
