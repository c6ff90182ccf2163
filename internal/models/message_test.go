package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRecipientFallbackOrder(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"to_email wins", `{"to_email":"a@x.com","user_email":"b@x.com","email":"c@x.com"}`, "a@x.com"},
		{"user_email second", `{"user_email":"b@x.com","email":"c@x.com"}`, "b@x.com"},
		{"email last", `{"email":"c@x.com"}`, "c@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ResolveDeliveryRequest([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Recipient)
		})
	}
}

func TestResolveSubjectAndContentFallbacks(t *testing.T) {
	req, err := ResolveDeliveryRequest([]byte(`{"email":"c@x.com","title":"Hi","message":"Body"}`))
	require.NoError(t, err)
	assert.Equal(t, "Hi", req.Subject)
	assert.Equal(t, "Body", req.BodyText)

	req, err = ResolveDeliveryRequest([]byte(`{"email":"c@x.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "Notification", req.Subject)
	assert.Equal(t, "You have a new notification", req.BodyText)
}

func TestResolveSubjectPrefersCanonicalField(t *testing.T) {
	req, err := ResolveDeliveryRequest([]byte(`{"email":"c@x.com","subject":"Real","title":"Alias","content":"a","body":"b"}`))
	require.NoError(t, err)
	assert.Equal(t, "Real", req.Subject)
	assert.Equal(t, "a", req.BodyText)
}

func TestResolveMissingRecipientIsMalformed(t *testing.T) {
	_, err := ResolveDeliveryRequest([]byte(`{"subject":"Hi","content":"Body"}`))

	var malformed *MalformedMessageError
	require.ErrorAs(t, err, &malformed)
}

func TestResolveInvalidJSONIsMalformed(t *testing.T) {
	_, err := ResolveDeliveryRequest([]byte(`{not json`))

	var malformed *MalformedMessageError
	require.ErrorAs(t, err, &malformed)
}

func TestResolveGeneratesRequestIDWhenAbsent(t *testing.T) {
	req, err := ResolveDeliveryRequest([]byte(`{"email":"c@x.com"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, req.RequestID)

	req2, err := ResolveDeliveryRequest([]byte(`{"email":"c@x.com"}`))
	require.NoError(t, err)
	assert.NotEqual(t, req.RequestID, req2.RequestID)
}

func TestResolveKeepsCallerRequestID(t *testing.T) {
	req, err := ResolveDeliveryRequest([]byte(`{"request_id":"req-1","email":"c@x.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "req-1", req.RequestID)
}

func TestResolveTemplateReference(t *testing.T) {
	payload := `{
		"email": "c@x.com",
		"template_code": "welcome",
		"template_variables": {"name": "Ann"}
	}`

	req, err := ResolveDeliveryRequest([]byte(payload))
	require.NoError(t, err)
	require.NotNil(t, req.Template)
	assert.Equal(t, "welcome", req.Template.Code)
	assert.Equal(t, "en", req.Template.Language, "language defaults to en")
	assert.Equal(t, map[string]string{"name": "Ann"}, req.Template.Variables)
}

func TestResolveWithoutTemplateReference(t *testing.T) {
	req, err := ResolveDeliveryRequest([]byte(`{"email":"c@x.com","content":"hello"}`))
	require.NoError(t, err)
	assert.Nil(t, req.Template)
}
