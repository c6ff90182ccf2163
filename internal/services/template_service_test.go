package services

import (
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalworks/email-delivery-service/internal/models"
)

type fakeTemplateRepo struct {
	live     []*models.Template
	archived []*models.TemplateVersion
}

func (r *fakeTemplateRepo) GetCurrent(code, language string) (*models.Template, error) {
	for _, tpl := range r.live {
		if tpl.TemplateCode == code && tpl.Language == language && tpl.IsCurrent {
			return tpl, nil
		}
	}
	return nil, models.ErrTemplateNotFound
}

func (r *fakeTemplateRepo) GetByVersion(code, language string, version int) (*models.Template, error) {
	for _, tpl := range r.live {
		if tpl.TemplateCode == code && tpl.Language == language && tpl.Version == version {
			return tpl, nil
		}
	}
	return nil, models.ErrTemplateNotFound
}

func (r *fakeTemplateRepo) GetArchivedVersion(code, language string, version int) (*models.TemplateVersion, error) {
	for _, snap := range r.archived {
		if snap.TemplateCode == code && snap.Language == language && snap.Version == version {
			return snap, nil
		}
	}
	return nil, models.ErrTemplateNotFound
}

func (r *fakeTemplateRepo) Insert(tpl *models.Template) error {
	r.live = append(r.live, tpl)
	return nil
}

func (r *fakeTemplateRepo) ReplaceCurrent(snapshot *models.TemplateVersion, next *models.Template) error {
	found := false
	for _, tpl := range r.live {
		if tpl.TemplateCode == snapshot.TemplateCode && tpl.Language == snapshot.Language && tpl.IsCurrent {
			tpl.IsCurrent = false
			found = true
			break
		}
	}
	if !found {
		return models.ErrTemplateNotFound
	}
	r.archived = append(r.archived, snapshot)
	r.live = append(r.live, next)
	return nil
}

func (r *fakeTemplateRepo) ListCurrent(status models.TemplateStatus, templateType models.TemplateType) ([]models.Template, error) {
	var out []models.Template
	for _, tpl := range r.live {
		if !tpl.IsCurrent {
			continue
		}
		if status != "" && tpl.Status != status {
			continue
		}
		if templateType != "" && tpl.TemplateType != templateType {
			continue
		}
		out = append(out, *tpl)
	}
	return out, nil
}

func (r *fakeTemplateRepo) ListVersions(code, language string) ([]models.TemplateVersion, error) {
	var out []models.TemplateVersion
	for _, snap := range r.archived {
		if snap.TemplateCode == code && snap.Language == language {
			out = append(out, *snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (r *fakeTemplateRepo) currentCount(code, language string) int {
	n := 0
	for _, tpl := range r.live {
		if tpl.TemplateCode == code && tpl.Language == language && tpl.IsCurrent {
			n++
		}
	}
	return n
}

func newTestTemplateService(repo *fakeTemplateRepo) *TemplateService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTemplateService(repo, NewRenderer(), logger)
}

func welcomeRequest() *models.CreateTemplateRequest {
	return &models.CreateTemplateRequest{
		TemplateCode: "welcome",
		Name:         "Welcome Email",
		Subject:      "Welcome {{name}}",
		BodyHTML:     "<h1>Hi {{name}}</h1><p>Your code is {{code}}</p>",
		BodyText:     "Hi {{name}}, your code is {{code}}",
		CreatedBy:    "tests",
	}
}

func TestCreateTemplateFirstVersion(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	tpl, err := svc.Create(welcomeRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, tpl.Version)
	assert.True(t, tpl.IsCurrent)
	assert.Equal(t, "en", tpl.Language, "language defaults to en")
	assert.Equal(t, models.TemplateStatusActive, tpl.Status)
	assert.Equal(t, models.TemplateTypeEmail, tpl.TemplateType)
	assert.Equal(t, []string{"code", "name"}, tpl.Variables, "variables are scanned from content")
}

func TestCreateTemplateRejectsDuplicatePair(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	_, err := svc.Create(welcomeRequest())
	require.NoError(t, err)

	_, err = svc.Create(welcomeRequest())
	assert.ErrorIs(t, err, models.ErrDuplicateTemplate)
}

func TestCreateTemplateSamePairDifferentLanguage(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	_, err := svc.Create(welcomeRequest())
	require.NoError(t, err)

	req := welcomeRequest()
	req.Language = "fr"
	_, err = svc.Create(req)
	assert.NoError(t, err, "same code in another language is a distinct pair")
}

func TestUpdateTemplateArchivesAndBumpsVersion(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	v1, err := svc.Create(welcomeRequest())
	require.NoError(t, err)

	v2, err := svc.Update("welcome", "en", &models.UpdateTemplateRequest{
		Subject:      "Hello {{name}}",
		ChangeReason: "friendlier greeting",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, v2.Version)
	assert.True(t, v2.IsCurrent)
	assert.Equal(t, "Hello {{name}}", v2.Subject)
	assert.Equal(t, v1.BodyHTML, v2.BodyHTML, "empty patch fields keep the current value")
	assert.Equal(t, 1, repo.currentCount("welcome", "en"), "exactly one current row per pair")
	assert.False(t, v1.IsCurrent, "old live row is superseded, not deleted")

	require.Len(t, repo.archived, 1)
	snap := repo.archived[0]
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, "Welcome {{name}}", snap.Subject, "snapshot keeps the pre-update content verbatim")
	assert.Equal(t, "friendlier greeting", snap.ChangeReason)
}

func TestUpdateTemplateReextractsVariables(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	_, err := svc.Create(welcomeRequest())
	require.NoError(t, err)

	v2, err := svc.Update("welcome", "en", &models.UpdateTemplateRequest{
		Subject:  "Welcome aboard",
		BodyHTML: "<p>Hi {{first_name}}</p>",
		BodyText: "Hi {{first_name}}",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first_name"}, v2.Variables)
}

func TestUpdateTemplateVersionsStayContiguous(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	_, err := svc.Create(welcomeRequest())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Update("welcome", "en", &models.UpdateTemplateRequest{ChangeReason: "tweak"})
		require.NoError(t, err)
	}

	current, err := svc.Get("welcome", "en", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, current.Version)
	assert.Equal(t, 1, repo.currentCount("welcome", "en"))

	history, err := svc.ListVersions("welcome", "en")
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, snap := range history {
		assert.Equal(t, 3-i, snap.Version, "history is newest first with no gaps")
	}
}

func TestUpdateMissingTemplate(t *testing.T) {
	svc := newTestTemplateService(&fakeTemplateRepo{})

	_, err := svc.Update("ghost", "en", &models.UpdateTemplateRequest{Subject: "x"})
	assert.ErrorIs(t, err, models.ErrTemplateNotFound)
}

func TestGetTemplateByVersion(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	_, err := svc.Create(welcomeRequest())
	require.NoError(t, err)
	_, err = svc.Update("welcome", "en", &models.UpdateTemplateRequest{Subject: "Hello {{name}}"})
	require.NoError(t, err)

	v1, err := svc.Get("welcome", "en", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)
	assert.False(t, v1.IsCurrent)
	assert.Equal(t, "Welcome {{name}}", v1.Subject)

	_, err = svc.Get("welcome", "en", 9)
	assert.ErrorIs(t, err, models.ErrTemplateNotFound)
}

func TestGetTemplateFallsBackToHistory(t *testing.T) {
	// A version whose live row is gone is reconstructed from its snapshot.
	repo := &fakeTemplateRepo{
		archived: []*models.TemplateVersion{{
			TemplateCode: "welcome",
			Language:     "en",
			Version:      1,
			Subject:      "Welcome {{name}}",
			BodyHTML:     "<h1>Hi {{name}}</h1>",
			Variables:    []string{"name"},
			CreatedBy:    "tests",
		}},
	}
	svc := newTestTemplateService(repo)

	tpl, err := svc.Get("welcome", "en", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, tpl.Version)
	assert.Equal(t, models.TemplateStatusArchived, tpl.Status)
	assert.False(t, tpl.IsCurrent)
	assert.Equal(t, "Welcome {{name}}", tpl.Subject)
}

func TestArchiveTemplate(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	_, err := svc.Create(welcomeRequest())
	require.NoError(t, err)

	archived, err := svc.Archive("welcome", "en")
	require.NoError(t, err)
	assert.Equal(t, models.TemplateStatusArchived, archived.Status)
	assert.Equal(t, 2, archived.Version)
}

func TestRenderTemplate(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	_, err := svc.Create(welcomeRequest())
	require.NoError(t, err)

	rendered, err := svc.Render("welcome", map[string]string{"name": "Ann", "code": "1234"}, "")
	require.NoError(t, err)
	assert.Equal(t, "welcome", rendered.TemplateCode)
	assert.Equal(t, "en", rendered.Language)
	assert.Equal(t, "Welcome Ann", rendered.Subject)
	assert.Equal(t, "<h1>Hi Ann</h1><p>Your code is 1234</p>", rendered.BodyHTML)
	assert.Equal(t, "Hi Ann, your code is 1234", rendered.BodyText)
}

func TestRenderTemplateMissingVariables(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	_, err := svc.Create(welcomeRequest())
	require.NoError(t, err)

	_, err = svc.Render("welcome", map[string]string{"name": "Ann"}, "en")
	var missing *models.MissingVariablesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"code"}, missing.Missing)
}

func TestRenderMissingTemplate(t *testing.T) {
	svc := newTestTemplateService(&fakeTemplateRepo{})

	_, err := svc.Render("ghost", map[string]string{}, "en")
	assert.ErrorIs(t, err, models.ErrTemplateNotFound)
}

func TestListCurrentFiltersByStatus(t *testing.T) {
	repo := &fakeTemplateRepo{}
	svc := newTestTemplateService(repo)

	_, err := svc.Create(welcomeRequest())
	require.NoError(t, err)

	req := welcomeRequest()
	req.TemplateCode = "goodbye"
	_, err = svc.Create(req)
	require.NoError(t, err)

	_, err = svc.Archive("goodbye", "en")
	require.NoError(t, err)

	active, err := svc.List(models.TemplateStatusActive, "")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "welcome", active[0].TemplateCode)
}
