package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
		field   string
	}{
		{"minimal", `{"platforms":{}}`, false, ""},
		{"full", `{"keywords":"backend","max_applications":5,"max_pages":1,
			"platforms":{"linkedin":{"enabled":true,"login_mode":"google","email":"u@x.com"}}}`, false, ""},
		{"inline profile", `{"platforms":{},"profile":{"full_name":"Asha"}}`, true, "(root)"},
		{"missing platforms", `{"keywords":"go"}`, true, "(root)"},
		{"wrong type", `{"platforms":{},"max_pages":"two"}`, true, "max_pages"},
		{"negative limit", `{"platforms":{},"max_applications":-1}`, true, "max_applications"},
		{"unknown login mode", `{"platforms":{"linkedin":{"enabled":true,"login_mode":"sso"}}}`, true, "platforms.linkedin.login_mode"},
		{"unknown platform field", `{"platforms":{"linkedin":{"enabled":true,"token":"x"}}}`, true, "platforms.linkedin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest([]byte(tt.doc))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			require.NotEmpty(t, ve.Errors)
			assert.Equal(t, tt.field, ve.Errors[0].Field)
			assert.Contains(t, ve.First(), tt.field)
		})
	}
}

func TestValidateRunFile(t *testing.T) {
	assert.NoError(t, ValidateRunFile([]byte(`{"platforms":{"linkedin":{"enabled":true,"login_mode":"google","email":"u@x.com"}},
		"profile":{"full_name":"Asha","phone":"123456"}}`)))

	err := ValidateRunFile([]byte(`{"platforms":{},"profile":{"twitter":"@asha"}}`))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "profile", ve.Errors[0].Field)

	err = ValidateRunFile([]byte(`{"platforms":{},"extra":true}`))
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.First(), "extra")
}

func TestValidateScrape(t *testing.T) {
	assert.NoError(t, ValidateScrape([]byte(`{"platform":"internshala","keywords":"web-development","max_pages":2}`)))

	err := ValidateScrape([]byte(`{"keywords":"go"}`))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "platform")
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := ValidateRequest([]byte(`{"platforms":`))
	var le *SchemaLoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "request", le.Name)
}
