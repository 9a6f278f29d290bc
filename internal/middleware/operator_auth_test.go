package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupOperatorRouter(apiKey string) *gin.Engine {
	r := gin.New()
	r.POST("/run", OperatorAuthMiddleware(apiKey), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func TestOperatorAuthMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		configuredKey string
		requestKey    string
		wantStatus    int
		wantErrorCode string
	}{
		{name: "valid_key", configuredKey: "operator-secret", requestKey: "operator-secret", wantStatus: http.StatusOK},
		{name: "wrong_key", configuredKey: "operator-secret", requestKey: "guess", wantStatus: http.StatusUnauthorized, wantErrorCode: "INVALID_API_KEY"},
		{name: "missing_key", configuredKey: "operator-secret", wantStatus: http.StatusUnauthorized, wantErrorCode: "INVALID_API_KEY"},
		{name: "prefix_rejected", configuredKey: "operator-secret", requestKey: "operator", wantStatus: http.StatusUnauthorized, wantErrorCode: "INVALID_API_KEY"},
		{name: "not_configured", configuredKey: "", requestKey: "anything", wantStatus: http.StatusServiceUnavailable, wantErrorCode: "OPERATOR_KEY_NOT_CONFIGURED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/run", http.NoBody)
			if tt.requestKey != "" {
				req.Header.Set(OperatorKeyHeader, tt.requestKey)
			}
			rec := httptest.NewRecorder()
			setupOperatorRouter(tt.configuredKey).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantErrorCode == "" {
				return
			}
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to parse response body: %v", err)
			}
			if body.Error.Code != tt.wantErrorCode {
				t.Errorf("error code = %q, want %q", body.Error.Code, tt.wantErrorCode)
			}
		})
	}
}
