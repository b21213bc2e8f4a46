package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteJSON(rec, http.StatusCreated, SuccessResponse("created", map[string]string{"id": "1"}))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "created", body["message"])
	assert.NotContains(t, body, "errors")
}

func TestValidationResponseCarriesFields(t *testing.T) {
	resp := ValidationResponse("invalid", map[string][]string{"email": {"must be a valid email address"}})

	assert.False(t, resp.Success)
	assert.Equal(t, "validation_failed", resp.Error)
	assert.Equal(t, []string{"must be a valid email address"}, resp.Errors["email"])
}
