package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/nepq-coach-backend/internal/http/response"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/ctxutil"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type fakeAuth struct {
	userID uuid.UUID
}

func (f *fakeAuth) LoginUser(context.Context, string, string) (string, string, error) {
	return "", "", nil
}
func (f *fakeAuth) RefreshUser(context.Context, string) (string, string, error) { return "", "", nil }
func (f *fakeAuth) LogoutUser(context.Context) error                          { return nil }
func (f *fakeAuth) GetAccessTTL() time.Duration                               { return time.Minute }

func (f *fakeAuth) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	switch token {
	case "good":
		return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: f.userID, Role: "AGENT"}), nil
	case "anonymous":
		return ctx, nil
	}
	return nil, apierr.Unauthorized("token_expired", "token expired")
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	userID := uuid.New()
	am := NewAuthMiddleware(log, &fakeAuth{userID: userID})

	r := gin.New()
	r.Use(am.RequireAuth())
	r.GET("/me", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID.String())
	})

	cases := []struct {
		name   string
		target string
		header string
		status int
		code   string
	}{
		{"bearer", "/me", "Bearer good", http.StatusOK, ""},
		{"query", "/me?token=good", "", http.StatusOK, ""},
		{"missing", "/me", "", http.StatusUnauthorized, "unauthorized"},
		{"expired", "/me", "Bearer stale", http.StatusUnauthorized, "token_expired"},
		{"no user", "/me", "bearer anonymous", http.StatusForbidden, "forbidden"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.target, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: status want=%d got=%d body=%s", tc.name, tc.status, rec.Code, rec.Body.String())
		}
		if tc.code == "" {
			if rec.Body.String() != userID.String() {
				t.Fatalf("%s: body want=%s got=%s", tc.name, userID, rec.Body.String())
			}
			continue
		}
		var env response.ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if env.Error.Code != tc.code {
			t.Fatalf("%s: code want=%s got=%s", tc.name, tc.code, env.Error.Code)
		}
	}
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		td := ctxutil.GetTraceData(c.Request.Context())
		c.String(http.StatusOK, td.RequestID)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != "req-1" || rec.Header().Get(headerRequestID) != "req-1" {
		t.Fatalf("request id: body=%q header=%q", rec.Body.String(), rec.Header().Get(headerRequestID))
	}
	if rec.Header().Get(headerTraceID) == "" {
		t.Fatalf("trace id header missing")
	}
}
