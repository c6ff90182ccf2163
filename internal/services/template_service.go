package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/signalworks/email-delivery-service/internal/models"
)

// TemplateRepository is the persistence behavior the template service needs.
type TemplateRepository interface {
	GetCurrent(code, language string) (*models.Template, error)
	GetByVersion(code, language string, version int) (*models.Template, error)
	GetArchivedVersion(code, language string, version int) (*models.TemplateVersion, error)
	Insert(tpl *models.Template) error
	ReplaceCurrent(snapshot *models.TemplateVersion, next *models.Template) error
	ListCurrent(status models.TemplateStatus, templateType models.TemplateType) ([]models.Template, error)
	ListVersions(code, language string) ([]models.TemplateVersion, error)
}

// TemplateService manages versioned templates and renders them with
// variable substitution.
type TemplateService struct {
	repo     TemplateRepository
	renderer *Renderer
	logger   *slog.Logger
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(repo TemplateRepository, renderer *Renderer, logger *slog.Logger) *TemplateService {
	return &TemplateService{repo: repo, renderer: renderer, logger: logger}
}

// Create persists the first version of a template. The variable set is
// derived by scanning subject and bodies for {{name}} placeholders.
func (s *TemplateService) Create(req *models.CreateTemplateRequest) (*models.Template, error) {
	language := req.Language
	if language == "" {
		language = "en"
	}

	if _, err := s.repo.GetCurrent(req.TemplateCode, language); err == nil {
		return nil, fmt.Errorf("%w: %s (%s)", models.ErrDuplicateTemplate, req.TemplateCode, language)
	} else if !errors.Is(err, models.ErrTemplateNotFound) {
		return nil, err
	}

	templateType := models.TemplateType(req.TemplateType)
	if templateType == "" {
		templateType = models.TemplateTypeEmail
	}

	tpl := &models.Template{
		TemplateCode: req.TemplateCode,
		Language:     language,
		Name:         req.Name,
		Description:  req.Description,
		Subject:      req.Subject,
		BodyHTML:     req.BodyHTML,
		BodyText:     req.BodyText,
		TemplateType: templateType,
		Variables:    s.renderer.ExtractVariables(req.Subject, req.BodyHTML, req.BodyText),
		Status:       models.TemplateStatusActive,
		Version:      1,
		IsCurrent:    true,
		CreatedBy:    req.CreatedBy,
	}

	if err := s.repo.Insert(tpl); err != nil {
		return nil, err
	}

	s.logger.Info("template created",
		slog.String("template_code", tpl.TemplateCode),
		slog.String("language", tpl.Language),
		slog.Int("version", tpl.Version),
	)
	return tpl, nil
}

// Get resolves (code, language) to the current template, or to an exact
// historical version when one is requested. Versions that no longer have a
// live row are reconstructed from the version history.
func (s *TemplateService) Get(code, language string, version int) (*models.Template, error) {
	if language == "" {
		language = "en"
	}
	if version == 0 {
		return s.repo.GetCurrent(code, language)
	}

	tpl, err := s.repo.GetByVersion(code, language, version)
	if err == nil {
		return tpl, nil
	}
	if !errors.Is(err, models.ErrTemplateNotFound) {
		return nil, err
	}

	snapshot, err := s.repo.GetArchivedVersion(code, language, version)
	if err != nil {
		return nil, err
	}
	return &models.Template{
		TemplateCode: snapshot.TemplateCode,
		Language:     snapshot.Language,
		Subject:      snapshot.Subject,
		BodyHTML:     snapshot.BodyHTML,
		BodyText:     snapshot.BodyText,
		Variables:    snapshot.Variables,
		Status:       models.TemplateStatusArchived,
		Version:      snapshot.Version,
		IsCurrent:    false,
		CreatedBy:    snapshot.CreatedBy,
		CreatedAt:    snapshot.CreatedAt,
	}, nil
}

// Update supersedes the current version: the prior content is archived into
// the version history and a new row with version+1 becomes current, carrying
// forward any fields the patch leaves empty. The archive and insert are one
// transaction so the pair can never end up with zero or two current rows.
func (s *TemplateService) Update(code, language string, req *models.UpdateTemplateRequest) (*models.Template, error) {
	if language == "" {
		language = "en"
	}

	current, err := s.repo.GetCurrent(code, language)
	if err != nil {
		return nil, err
	}

	subject := orDefault(req.Subject, current.Subject)
	bodyHTML := orDefault(req.BodyHTML, current.BodyHTML)
	bodyText := orDefault(req.BodyText, current.BodyText)

	status := current.Status
	if req.Status != "" {
		status = models.TemplateStatus(req.Status)
	}

	snapshot := &models.TemplateVersion{
		TemplateCode: current.TemplateCode,
		Language:     current.Language,
		Version:      current.Version,
		Subject:      current.Subject,
		BodyHTML:     current.BodyHTML,
		BodyText:     current.BodyText,
		Variables:    current.Variables,
		ChangeReason: req.ChangeReason,
		CreatedBy:    current.CreatedBy,
	}

	next := &models.Template{
		TemplateCode: current.TemplateCode,
		Language:     current.Language,
		Name:         orDefault(req.Name, current.Name),
		Description:  orDefault(req.Description, current.Description),
		Subject:      subject,
		BodyHTML:     bodyHTML,
		BodyText:     bodyText,
		TemplateType: current.TemplateType,
		Variables:    s.renderer.ExtractVariables(subject, bodyHTML, bodyText),
		Status:       status,
		Version:      current.Version + 1,
		IsCurrent:    true,
		CreatedBy:    current.CreatedBy,
	}

	if err := s.repo.ReplaceCurrent(snapshot, next); err != nil {
		return nil, err
	}

	s.logger.Info("template updated",
		slog.String("template_code", next.TemplateCode),
		slog.String("language", next.Language),
		slog.Int("version", next.Version),
	)
	return next, nil
}

// Archive retires a template by flipping its status through a new version.
func (s *TemplateService) Archive(code, language string) (*models.Template, error) {
	return s.Update(code, language, &models.UpdateTemplateRequest{
		Status:       string(models.TemplateStatusArchived),
		ChangeReason: "archived",
	})
}

// Render loads the current template for (code, language), verifies the
// provided variables cover the template's declared set, and substitutes them
// into subject and bodies.
func (s *TemplateService) Render(code string, variables map[string]string, language string) (*models.RenderedContent, error) {
	if language == "" {
		language = "en"
	}

	tpl, err := s.repo.GetCurrent(code, language)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range tpl.Variables {
		if _, ok := variables[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &models.MissingVariablesError{TemplateCode: code, Missing: missing}
	}

	rendered, err := s.renderer.Render(tpl.Subject, tpl.BodyHTML, tpl.BodyText, variables)
	if err != nil {
		return nil, err
	}
	rendered.TemplateCode = code
	rendered.Language = language
	return rendered, nil
}

// List returns current templates, optionally filtered by status and type.
func (s *TemplateService) List(status models.TemplateStatus, templateType models.TemplateType) ([]models.Template, error) {
	return s.repo.ListCurrent(status, templateType)
}

// ListVersions returns a pair's version history, newest first.
func (s *TemplateService) ListVersions(code, language string) ([]models.TemplateVersion, error) {
	if language == "" {
		language = "en"
	}
	return s.repo.ListVersions(code, language)
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
