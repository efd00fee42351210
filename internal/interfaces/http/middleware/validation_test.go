package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fxoffice/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepositoryRequest struct {
	Key      string `json:"key" binding:"required,repo_key"`
	Currency string `json:"currency" binding:"required,currency_code"`
	Name     string `json:"name" binding:"required,max=10"`
}

func newValidationRouter(t *testing.T) *gin.Engine {
	t.Helper()
	require.NoError(t, SetupValidator())
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/repositories", func(c *gin.Context) {
		var req testRepositoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	})
	return r
}

func postJSON(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/repositories", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSetupValidator_DomainTags(t *testing.T) {
	r := newValidationRouter(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"key":"main-till_1","currency":"usd","name":"Main"}`, http.StatusCreated},
		{"crypto symbol", `{"key":"VAULT","currency":"USDT","name":"Main"}`, http.StatusCreated},
		{"key too short", `{"key":"A","currency":"USD","name":"Main"}`, http.StatusBadRequest},
		{"key with space", `{"key":"MAIN TILL","currency":"USD","name":"Main"}`, http.StatusBadRequest},
		{"code with symbol", `{"key":"MAIN","currency":"US$","name":"Main"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, postJSON(r, tt.body).Code)
		})
	}
}

func TestHandleValidationError_Details(t *testing.T) {
	r := newValidationRouter(t)
	w := postJSON(r, `{"key":"A","currency":"","name":"a very long name"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

	byField := map[string]string{}
	for _, d := range resp.Error.Details {
		byField[d.Field] = d.Message
	}
	assert.Equal(t, "Must be 2-32 letters, digits, '_' or '-'", byField["key"])
	assert.Equal(t, "This field is required", byField["currency"])
	assert.Equal(t, "Must be at most 10 characters", byField["name"])
}

func TestHandleValidationError_MalformedJSON(t *testing.T) {
	r := newValidationRouter(t)
	w := postJSON(r, `{"key":`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}
