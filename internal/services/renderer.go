package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/signalworks/email-delivery-service/internal/models"
)

var (
	variablePattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)
	leftoverPattern = regexp.MustCompile(`\{\{[^}]*\}\}`)
)

// Renderer substitutes {{variable}} placeholders into template fields. It is
// strict: any placeholder left unresolved after substitution is a rendering
// error rather than a silently empty string.
type Renderer struct{}

// NewRenderer creates a new Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// ExtractVariables scans the given texts for {{name}} placeholders and
// returns the deduplicated, sorted set of variable names.
func (r *Renderer) ExtractVariables(texts ...string) []string {
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, match := range variablePattern.FindAllStringSubmatch(text, -1) {
			seen[match[1]] = struct{}{}
		}
	}

	variables := make([]string, 0, len(seen))
	for name := range seen {
		variables = append(variables, name)
	}
	sort.Strings(variables)
	return variables
}

// Render substitutes variables into subject, HTML body, and text body.
func (r *Renderer) Render(subject, bodyHTML, bodyText string, variables map[string]string) (*models.RenderedContent, error) {
	renderedSubject, err := r.renderField("subject", subject, variables)
	if err != nil {
		return nil, err
	}
	renderedHTML, err := r.renderField("body_html", bodyHTML, variables)
	if err != nil {
		return nil, err
	}

	var renderedText string
	if bodyText != "" {
		renderedText, err = r.renderField("body_text", bodyText, variables)
		if err != nil {
			return nil, err
		}
	}

	return &models.RenderedContent{
		Subject:  renderedSubject,
		BodyHTML: renderedHTML,
		BodyText: renderedText,
	}, nil
}

func (r *Renderer) renderField(field, text string, variables map[string]string) (string, error) {
	rendered := variablePattern.ReplaceAllStringFunc(text, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		if value, ok := variables[name]; ok {
			return value
		}
		// Leave the placeholder intact so the leftover check rejects it.
		return match
	})

	if leftover := leftoverPattern.FindString(rendered); leftover != "" {
		return "", &models.UnresolvedReferenceError{Field: field, Reference: strings.TrimSpace(leftover)}
	}
	return rendered, nil
}
