package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hosting-assessment/internal/common/errors"
)

func TestValidateJSON_Submit(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		valid       bool
		wantMissing []string
		wantInvalid []string
	}{
		{
			name:  "valid",
			body:  `{"agency_info":{"agency_name":"A","contact_name":"B","contact_email":"b@example.gov"},"answers":{"latency":"low"}}`,
			valid: true,
		},
		{
			name:        "missing sections",
			body:        `{}`,
			wantMissing: []string{"agency_info", "answers"},
		},
		{
			name:        "missing nested field",
			body:        `{"agency_info":{"agency_name":"A","contact_email":"b@example.gov"},"answers":{}}`,
			wantMissing: []string{"agency_info.contact_name"},
		},
		{
			name:        "wrong types",
			body:        `{"agency_info":{"agency_name":"A","contact_name":"B","contact_email":"nope"},"answers":{"latency":3}}`,
			wantInvalid: []string{"agency_info.contact_email", "answers.latency"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateJSON(SchemaSubmit, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)

			verr := res.AsError()
			if tt.valid {
				assert.NoError(t, verr)
				return
			}
			require.True(t, apperrors.IsValidation(verr))
			assert.Equal(t, tt.wantMissing, apperrors.MetadataStrings(verr, "missing"))
			assert.Equal(t, tt.wantInvalid, apperrors.MetadataStrings(verr, "invalid"))
		})
	}
}

func TestValidateJSON_NotJSON(t *testing.T) {
	res, err := ValidateJSON(SchemaReview, []byte(`{"decision":`))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("(root)"))
	assert.True(t, apperrors.IsValidation(res.AsError()))
}

func TestValidateInput_Review(t *testing.T) {
	res, err := ValidateInput(SchemaReview, map[string]interface{}{"decision": "approved", "notes": "ok"})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = ValidateInput(SchemaReview, map[string]interface{}{"notes": "ok"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"decision: decision is required"}, res.GetErrorMessages())
}

func TestValidate_UnknownSchema(t *testing.T) {
	_, err := ValidateJSON("nope", []byte(`{}`))
	assert.Error(t, err)
}
