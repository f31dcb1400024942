package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MKhiriev/go-refsync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// injectNopLogger кладёт nop-логгер в контекст запроса.
func injectNopLogger(r *http.Request) *http.Request {
	return r.WithContext(logger.Nop().WithContext(r.Context()))
}

func TestGetTokenFromAuthHeader_TableTest(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantErr   error
	}{
		{name: "valid Bearer key", header: "Bearer my-key", wantToken: "my-key"},
		{name: "missing key part", header: "Bearer", wantErr: ErrInvalidAuthorizationHeader},
		{name: "only spaces", header: " ", wantErr: ErrEmptyToken},
		{name: "extra parts, second part is used", header: "Bearer key extra", wantToken: "key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := getTokenFromAuthHeader(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestAuth_Middleware_TableTest(t *testing.T) {
	tests := []struct {
		name           string
		configuredKey  string
		headers        map[string]string
		expectedStatus int
		nextCalled     bool
		wantBody       string
	}{
		{
			name:           "api key header",
			configuredKey:  testAPIKey,
			headers:        map[string]string{"Zotero-API-Key": testAPIKey},
			expectedStatus: http.StatusOK,
			nextCalled:     true,
		},
		{
			name:           "bearer key",
			configuredKey:  testAPIKey,
			headers:        map[string]string{"Authorization": "Bearer " + testAPIKey},
			expectedStatus: http.StatusOK,
			nextCalled:     true,
		},
		{
			name:           "no key",
			configuredKey:  testAPIKey,
			expectedStatus: http.StatusForbidden,
			wantBody:       ErrEmptyAPIKey.Error(),
		},
		{
			name:           "wrong key",
			configuredKey:  testAPIKey,
			headers:        map[string]string{"Zotero-API-Key": "other"},
			expectedStatus: http.StatusForbidden,
			wantBody:       ErrInvalidAPIKey.Error(),
		},
		{
			name:           "malformed authorization header",
			configuredKey:  testAPIKey,
			headers:        map[string]string{"Authorization": "Bearer"},
			expectedStatus: http.StatusForbidden,
			wantBody:       ErrInvalidAuthorizationHeader.Error(),
		},
		{
			name:           "check disabled",
			expectedStatus: http.StatusOK,
			nextCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{apiKey: tt.configuredKey, logger: logger.Nop()}

			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			req := injectNopLogger(httptest.NewRequest(http.MethodGet, "/users/1/settings", nil))
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			h.auth(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.nextCalled, nextCalled)
			if tt.wantBody != "" {
				assert.Contains(t, rr.Body.String(), tt.wantBody)
			}
		})
	}
}
