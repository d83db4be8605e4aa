package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	secret := "middleware-test-secret"

	var gotID uuid.UUID
	var gotOK bool
	protected := AuthMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = GetAuthUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	validToken, err := IssueToken(secret, userID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	foreignToken, err := IssueToken("some-other-secret", userID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	expiredToken, err := IssueToken(secret, userID, -time.Hour)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}

	testCases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "missing header", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "not a bearer token", authHeader: "Basic abc123", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", authHeader: "Bearer not.a.token", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", authHeader: "Bearer " + foreignToken, wantStatus: http.StatusUnauthorized},
		{name: "expired token", authHeader: "Bearer " + expiredToken, wantStatus: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + validToken, wantStatus: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotID, gotOK = uuid.Nil, false
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantStatus == http.StatusOK {
				if !gotOK || gotID != userID {
					t.Fatalf("expected user id %s on the context, got %s (ok=%v)", userID, gotID, gotOK)
				}
			}
		})
	}
}
