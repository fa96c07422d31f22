package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/streetconnect/streetconnect-backend/internal/groupbuys"
	pkgAuth "github.com/streetconnect/streetconnect-backend/pkg/auth"
	"github.com/streetconnect/streetconnect-backend/pkg/config"
	"github.com/streetconnect/streetconnect-backend/pkg/enums"
	"github.com/streetconnect/streetconnect-backend/pkg/logger"
	"github.com/streetconnect/streetconnect-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubGroupBuyService struct{}

func (stubGroupBuyService) Initiate(context.Context, groupbuys.InitiateInput) (*groupbuys.GroupBuyView, error) {
	return &groupbuys.GroupBuyView{}, nil
}

func (stubGroupBuyService) Get(context.Context, uuid.UUID) (*groupbuys.GroupBuyView, error) {
	return &groupbuys.GroupBuyView{}, nil
}

func (stubGroupBuyService) ListActive(context.Context, pagination.Params) (*groupbuys.GroupBuyListView, error) {
	return &groupbuys.GroupBuyListView{}, nil
}

func (stubGroupBuyService) ListMine(context.Context, uuid.UUID, pagination.Params) (*groupbuys.GroupBuyListView, error) {
	return &groupbuys.GroupBuyListView{}, nil
}

func (stubGroupBuyService) Cancel(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func testRouterConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "streetconnect-identity"},
	}
}

func mintRouterToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()

	claims := pkgAuth.AccessTokenClaims{
		UserID:      uuid.New(),
		DisplayName: "Test Vendor",
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWT.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	return NewRouter(RouterParams{
		Config:    cfg,
		Logger:    logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}),
		DB:        stubPinger{},
		Redis:     stubPinger{},
		GroupBuys: stubGroupBuyService{},
		Ledger:    nil,
		Catalog:   nil,
	})
}

func TestRouterHealthAndMetricsOpen(t *testing.T) {
	cfg := testRouterConfig()
	router := newTestRouter(t, cfg)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics", "/api/public/ping"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.Code)
		}
	}
}

func TestRouterRequiresAuth(t *testing.T) {
	cfg := testRouterConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/group-buys", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}
}

func TestRouterAllowsAuthedListing(t *testing.T) {
	cfg := testRouterConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/group-buys", nil)
	req.Header.Set("Authorization", "Bearer "+mintRouterToken(t, cfg, enums.UserRoleSupplier))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for authed list, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRouterEnforcesVendorRole(t *testing.T) {
	cfg := testRouterConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/group-buys", nil)
	req.Header.Set("Authorization", "Bearer "+mintRouterToken(t, cfg, enums.UserRoleSupplier))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for supplier on vendor route, got %d", resp.Code)
	}
}

func TestRouterEnforcesSupplierRole(t *testing.T) {
	cfg := testRouterConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/supplier/products", nil)
	req.Header.Set("Authorization", "Bearer "+mintRouterToken(t, cfg, enums.UserRoleVendor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor on supplier route, got %d", resp.Code)
	}
}
