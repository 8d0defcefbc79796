package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/phonebook/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "phonebook",
		SessionKey:    devSessionKey,
		SessionName:   "phonebook-login",
		JWTSecret:     devJWTSecret,
		JWTAlgorithm:  "HS256",
		JWTTTL:        time.Hour,
		AuditLogAuth:  "all",
		AuditLogAdmin: "db",
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a@example.org", []string{"a@example.org"}},
		{"a@example.org, b@example.org,,c@example.org", []string{"a@example.org", "b@example.org", "c@example.org"}},
		{" https://app.example.org  https://admin.example.org ", []string{"https://app.example.org", "https://admin.example.org"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	strong := strings.Repeat("k", 40)

	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "dev defaults accepted", env: "dev"},
		{name: "bad mongo uri", env: "dev", mutate: func(c *AppConfig) { c.MongoURI = "postgres://x" }, wantErr: "MongoDB URI"},
		{name: "rs256 rejected", env: "dev", mutate: func(c *AppConfig) { c.JWTAlgorithm = "RS256" }, wantErr: "jwt_algorithm"},
		{name: "bad audit mode", env: "dev", mutate: func(c *AppConfig) { c.AuditLogAdmin = "verbose" }, wantErr: "audit_log_admin"},
		{name: "prod dev jwt secret", env: "prod", mutate: func(c *AppConfig) { c.SessionKey = strong }, wantErr: "jwt_secret"},
		{name: "prod short session key", env: "prod", mutate: func(c *AppConfig) {
			c.JWTSecret = strong
			c.SessionKey = "short-but-not-default"
		}, wantErr: "session_key"},
		{name: "prod strong secrets", env: "prod", mutate: func(c *AppConfig) {
			c.JWTSecret = strong
			c.SessionKey = strong + "s"
			c.OIDCClientID = "cilogon:/client_id/1"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildHandler_Routing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}
	cfg := validConfig()
	cfg.CORSOrigins = []string{"https://app.example.org"}

	if err := EnsureSchema(ctx, &config.CoreConfig{Env: "dev"}, cfg, deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/user/check-auth", http.StatusOK},
		{"GET", "/api/v1/institutions", http.StatusUnauthorized},
		{"GET", "/api/v1/audit-events", http.StatusUnauthorized},
		{"GET", "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s: status %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}

	// Preflight from an allowed origin.
	req := httptest.NewRequest("OPTIONS", "/api/v1/members", nil)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.org" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q", got)
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}
	for i := 0; i < 2; i++ {
		if err := EnsureSchema(ctx, nil, validConfig(), deps, testLogger()); err != nil {
			t.Fatalf("EnsureSchema run %d: %v", i+1, err)
		}
	}
}
