package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskhub/internal/api/session"
	"taskhub/internal/model"
	"taskhub/internal/pkg/metrics"
	"taskhub/internal/pkg/token"
	"taskhub/internal/store"

	"github.com/gin-gonic/gin"
)

type mockUserFinder struct {
	findByIDFunc func(ctx context.Context, id uint) (*model.User, error)
	calls        int
}

func (m *mockUserFinder) FindByID(ctx context.Context, id uint) (*model.User, error) {
	m.calls++
	return m.findByIDFunc(ctx, id)
}

func newAuthRouter(users UserFinder, issuer *token.Issuer) (*gin.Engine, *int) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	nextCalls := 0
	r := gin.New()
	r.Use(AuthMiddleware(issuer, users, session.Transport{}))
	r.GET("/protected", func(c *gin.Context) {
		nextCalls++
		user := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "username": user.Username})
	})
	return r, &nextCalls
}

func TestAuthMiddleware_NoCookie(t *testing.T) {
	users := &mockUserFinder{findByIDFunc: func(ctx context.Context, id uint) (*model.User, error) {
		t.Fatalf("store must not be hit without a token")
		return nil, nil
	}}
	r, nextCalls := newAuthRouter(users, token.NewIssuer("secret", time.Hour))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if *nextCalls != 0 {
		t.Fatalf("next handler must not run")
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	users := &mockUserFinder{findByIDFunc: func(ctx context.Context, id uint) (*model.User, error) {
		t.Fatalf("store must not be hit with an invalid token")
		return nil, nil
	}}
	r, nextCalls := newAuthRouter(users, token.NewIssuer("secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "garbage"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if *nextCalls != 0 {
		t.Fatalf("next handler must not run")
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	users := &mockUserFinder{findByIDFunc: func(ctx context.Context, id uint) (*model.User, error) {
		return &model.User{ID: id}, nil
	}}
	expired := token.NewIssuer("secret", -time.Minute)
	tok, err := expired.Issue(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	r, _ := newAuthRouter(users, token.NewIssuer("secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tok})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", w.Code)
	}
}

func TestAuthMiddleware_DeletedUser(t *testing.T) {
	users := &mockUserFinder{findByIDFunc: func(ctx context.Context, id uint) (*model.User, error) {
		return nil, store.ErrUserNotFound
	}}
	issuer := token.NewIssuer("secret", time.Hour)
	tok, err := issuer.Issue(9)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	r, nextCalls := newAuthRouter(users, issuer)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tok})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted user, got %d", w.Code)
	}
	if users.calls != 1 {
		t.Fatalf("expected one store lookup, got %d", users.calls)
	}
	if *nextCalls != 0 {
		t.Fatalf("next handler must not run")
	}
}

func TestAuthMiddleware_AttachesSanitizedIdentity(t *testing.T) {
	users := &mockUserFinder{findByIDFunc: func(ctx context.Context, id uint) (*model.User, error) {
		return &model.User{ID: id, Username: "alice", Email: "alice@x.com", Password: "hash"}, nil
	}}
	issuer := token.NewIssuer("secret", time.Hour)
	tok, err := issuer.Issue(3)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	r := gin.New()
	r.Use(AuthMiddleware(issuer, users, session.Transport{}))
	r.GET("/protected", func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			t.Fatalf("identity missing from context")
		}
		if user.ID != 3 || user.Username != "alice" {
			t.Fatalf("unexpected identity: %+v", user)
		}
		if user.Password != "" {
			t.Fatalf("password hash must be stripped from context identity")
		}
		if UserID(c) != 3 {
			t.Fatalf("UserID helper mismatch")
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tok})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
