package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/shortlyhq/shortly/internal/auth"
	"github.com/shortlyhq/shortly/internal/config"
	"github.com/shortlyhq/shortly/internal/password"
	"github.com/shortlyhq/shortly/internal/server"
	"github.com/shortlyhq/shortly/internal/shortener"
	"github.com/shortlyhq/shortly/internal/token"
	"github.com/shortlyhq/shortly/internal/validcache"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

// testApp holds the application components for e2e testing
type testApp struct {
	router  http.Handler
	dbPool  *pgxpool.Pool
	cleanup func()
}

// setupTestApp creates a test application with a real database and an
// in-process redis.
func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	// Connect to database
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2

	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	// Verify connection
	if err := dbPool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	// Run migrations
	if err := runMigrations(connStr); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// In-process redis for the validation cache
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	logger := setupTestLogger()

	tokenManager, err := token.NewManager(testJWTSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to build token manager: %v", err)
	}

	cache, err := validcache.New(validcache.Config{
		Client:   redisClient,
		Verifier: tokenManager,
		TTL:      5 * time.Minute,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("failed to build validation cache: %v", err)
	}

	authService := auth.NewService(auth.ServiceConfig{
		Users:      auth.NewUserRepository(dbPool, nil),
		Tokens:     auth.NewRefreshTokenRepository(dbPool, nil),
		Hasher:     password.NewArgon2(),
		Signer:     tokenManager,
		Validator:  cache,
		RefreshTTL: 24 * time.Hour,
		Logger:     logger,
	})
	authHandler := auth.NewHandler(auth.HandlerConfig{
		Service: authService,
		Logger:  logger,
	})

	baseURL := "http://localhost:8080"
	linkRepo := shortener.NewRepository(dbPool, nil)
	linkService := shortener.NewService(linkRepo, &shortener.ServiceConfig{Logger: logger})
	linkHandler := shortener.NewHandler(shortener.HandlerConfig{
		Service: linkService,
		Logger:  logger,
		BaseURL: baseURL,
	})

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:            "8080",
			Host:            "localhost",
			BaseURL:         baseURL,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		App: config.AppConfig{
			Environment: "test",
			LogLevel:    "error",
			Name:        "shortly-test",
			Version:     "test",
		},
	}

	srv := server.New(cfg, logger, linkHandler, authHandler, authService)

	cleanup := func() {
		redisClient.Close()
		dbPool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}

	return &testApp{
		router:  srv.Routes(),
		dbPool:  dbPool,
		cleanup: cleanup,
	}
}

// doJSON issues a request against the router and decodes a JSON body when
// one is present.
func (a *testApp) doJSON(t *testing.T, method, target, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		_ = json.Unmarshal(rr.Body.Bytes(), &decoded)
	}
	return rr, decoded
}

// registerAndLogin creates an account and returns its token pair.
func (a *testApp) registerAndLogin(t *testing.T, username string) (accessToken, refreshToken string) {
	t.Helper()

	rr, _ := a.doJSON(t, "POST", "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "s3cret-pass",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register failed: status %d, body %s", rr.Code, rr.Body.String())
	}

	rr, resp := a.doJSON(t, "POST", "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "s3cret-pass",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: status %d, body %s", rr.Code, rr.Body.String())
	}

	access, _ := resp["access_token"].(string)
	refresh, _ := resp["refresh_token"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("login response missing tokens: %v", resp)
	}
	return access, refresh
}

func TestHealthCheck(t *testing.T) {
	app := setupTestApp(t)
	defer app.cleanup()

	rr, resp := app.doJSON(t, "GET", "/x/health", "", nil)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", resp["status"])
	}
}

func TestAuthFlow_E2E(t *testing.T) {
	app := setupTestApp(t)
	defer app.cleanup()

	access, refresh := app.registerAndLogin(t, "alice")

	t.Run("registration issues a usable token pair", func(t *testing.T) {
		rr, resp := app.doJSON(t, "POST", "/api/auth/register", "", map[string]string{
			"username": "carol",
			"email":    "carol@example.com",
			"password": "s3cret-pass",
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("register failed: status %d, body %s", rr.Code, rr.Body.String())
		}

		regAccess, _ := resp["access_token"].(string)
		regRefresh, _ := resp["refresh_token"].(string)
		if regAccess == "" || regRefresh == "" {
			t.Fatalf("register response missing tokens: %v", resp)
		}

		req := httptest.NewRequest("GET", "/api/auth/validate", nil)
		req.Header.Set("Authorization", "Bearer "+regAccess)
		w := httptest.NewRecorder()
		app.router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("validate failed: status %d", w.Code)
		}
		var validated map[string]any
		if err := json.NewDecoder(w.Body).Decode(&validated); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if validated["valid"] != true || validated["username"] != "carol" {
			t.Errorf("validate response = %v, want valid carol", validated)
		}

		rr, _ = app.doJSON(t, "POST", "/api/auth/refresh", "", map[string]string{
			"refresh_token": regRefresh,
		})
		if rr.Code != http.StatusOK {
			t.Errorf("refresh with registration token failed: status %d", rr.Code)
		}
	})

	t.Run("validate reports the account", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/auth/validate", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		rr := httptest.NewRecorder()
		app.router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]any
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["valid"] != true {
			t.Errorf("expected valid true, got %v", resp["valid"])
		}
		if resp["username"] != "alice" {
			t.Errorf("expected username 'alice', got %v", resp["username"])
		}
	})

	t.Run("validate rejects a garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/auth/validate", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rr := httptest.NewRecorder()
		app.router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]any
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["valid"] != false {
			t.Errorf("expected valid false, got %v", resp["valid"])
		}
	})

	t.Run("refresh returns a new access token and the same refresh token", func(t *testing.T) {
		rr, resp := app.doJSON(t, "POST", "/api/auth/refresh", "", map[string]string{
			"refresh_token": refresh,
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("refresh failed: status %d, body %s", rr.Code, rr.Body.String())
		}
		if resp["access_token"] == "" || resp["access_token"] == nil {
			t.Error("expected a new access token")
		}
		if resp["refresh_token"] != refresh {
			t.Errorf("expected refresh token %q to be reused, got %v", refresh, resp["refresh_token"])
		}
	})

	t.Run("logout revokes the refresh token", func(t *testing.T) {
		rr, _ := app.doJSON(t, "POST", "/api/auth/logout", access, nil)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("logout failed: status %d", rr.Code)
		}

		rr, _ = app.doJSON(t, "POST", "/api/auth/refresh", "", map[string]string{
			"refresh_token": refresh,
		})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401 after logout, got %d", rr.Code)
		}
	})

	t.Run("login replaces the previous refresh token", func(t *testing.T) {
		_, firstRefresh := app.registerAndLogin(t, "bob")

		rr, resp := app.doJSON(t, "POST", "/api/auth/login", "", map[string]string{
			"username": "bob",
			"password": "s3cret-pass",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("second login failed: status %d", rr.Code)
		}
		secondRefresh, _ := resp["refresh_token"].(string)
		if secondRefresh == firstRefresh {
			t.Error("second login reused the previous refresh token")
		}

		rr, _ = app.doJSON(t, "POST", "/api/auth/refresh", "", map[string]string{
			"refresh_token": firstRefresh,
		})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401 for replaced token, got %d", rr.Code)
		}
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		rr, _ := app.doJSON(t, "POST", "/api/auth/register", "", map[string]string{
			"username": "alice",
			"email":    "other@example.com",
			"password": "s3cret-pass",
		})
		if rr.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rr.Code)
		}
	})
}

func TestConcurrentLogin_E2E(t *testing.T) {
	app := setupTestApp(t)
	defer app.cleanup()

	ctx := context.Background()
	app.registerAndLogin(t, "racer")

	body, err := json.Marshal(map[string]string{
		"username": "racer",
		"password": "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}

	const attempts = 2
	codes := make([]int, attempts)
	tokens := make([]string, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			app.router.ServeHTTP(rr, req)

			codes[i] = rr.Code
			var resp map[string]any
			if json.Unmarshal(rr.Body.Bytes(), &resp) == nil {
				tokens[i], _ = resp["refresh_token"].(string)
			}
		}()
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("concurrent login %d: status %d, want 200", i, code)
		}
	}

	var count int
	var stored string
	err = app.dbPool.QueryRow(ctx, `
		SELECT count(*), coalesce(max(rt.token), '')
		FROM refresh_tokens rt
		JOIN users u ON u.id = rt.owner_id
		WHERE u.username = 'racer'`,
	).Scan(&count, &stored)
	if err != nil {
		t.Fatalf("failed to read refresh tokens: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 refresh token row, got %d", count)
	}
	if stored != tokens[0] && stored != tokens[1] {
		t.Errorf("stored token %q matches neither returned token %v", stored, tokens)
	}
}

func TestCreateLink_E2E(t *testing.T) {
	app := setupTestApp(t)
	defer app.cleanup()

	access, _ := app.registerAndLogin(t, "creator")

	t.Run("rejects an unauthenticated request", func(t *testing.T) {
		rr, _ := app.doJSON(t, "POST", "/api/links", "", map[string]string{
			"url": "https://example.com/test",
		})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rr.Code)
		}
	})

	tests := []struct {
		name           string
		requestBody    map[string]string
		expectedStatus int
		checkResponse  func(*testing.T, map[string]any)
	}{
		{
			name: "create link with auto-generated code",
			requestBody: map[string]string{
				"url": "https://example.com/test",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp map[string]any) {
				if resp["short_code"] == nil || resp["short_code"] == "" {
					t.Error("expected short_code to be generated")
				}
				if resp["original_url"] != "https://example.com/test" {
					t.Errorf("expected original_url 'https://example.com/test', got %v", resp["original_url"])
				}
				if resp["short_url"] == nil {
					t.Error("expected short_url to be set")
				}
				if resp["expires_at"] == nil || resp["expires_at"] == "" {
					t.Error("expected expires_at to be set")
				}
			},
		},
		{
			name: "create link with custom alias",
			requestBody: map[string]string{
				"url":          "https://example.com/custom",
				"custom_alias": "my-custom-alias",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp map[string]any) {
				if resp["short_code"] != "my-custom-alias" {
					t.Errorf("expected short_code 'my-custom-alias', got %v", resp["short_code"])
				}
			},
		},
		{
			name: "duplicate custom alias",
			requestBody: map[string]string{
				"url":          "https://example.com/second",
				"custom_alias": "my-custom-alias",
			},
			expectedStatus: http.StatusConflict,
			checkResponse: func(t *testing.T, resp map[string]any) {
				if resp["error"] != "conflict" {
					t.Errorf("expected error code 'conflict', got %v", resp["error"])
				}
			},
		},
		{
			name:           "missing url",
			requestBody:    map[string]string{},
			expectedStatus: http.StatusBadRequest,
			checkResponse:  func(t *testing.T, resp map[string]any) {},
		},
		{
			name: "invalid url format",
			requestBody: map[string]string{
				"url": "not-a-valid-url",
			},
			expectedStatus: http.StatusBadRequest,
			checkResponse:  func(t *testing.T, resp map[string]any) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := app.doJSON(t, "POST", "/api/links", access, tt.requestBody)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
				t.Logf("response body: %s", rr.Body.String())
			}
			tt.checkResponse(t, resp)
		})
	}
}

func TestResolveAndClickTracking_E2E(t *testing.T) {
	app := setupTestApp(t)
	defer app.cleanup()

	ctx := context.Background()
	access, _ := app.registerAndLogin(t, "resolver")

	rr, _ := app.doJSON(t, "POST", "/api/links", access, map[string]string{
		"url":          "https://example.com/redirect-test",
		"custom_alias": "test-redirect",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("failed to create link: status %d", rr.Code)
	}

	t.Run("resolve redirects to the original URL", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			rr, _ := app.doJSON(t, "GET", "/test-redirect", "", nil)
			if rr.Code != http.StatusFound {
				t.Fatalf("resolve attempt %d failed with status %d", i+1, rr.Code)
			}
			if location := rr.Header().Get("Location"); location != "https://example.com/redirect-test" {
				t.Errorf("expected location 'https://example.com/redirect-test', got %s", location)
			}
		}
	})

	t.Run("clicks are recorded", func(t *testing.T) {
		// Click tracking is asynchronous, poll briefly
		deadline := time.Now().Add(5 * time.Second)
		var count int64
		for time.Now().Before(deadline) {
			err := app.dbPool.QueryRow(ctx,
				`SELECT click_count FROM links WHERE short_code = $1`,
				"test-redirect",
			).Scan(&count)
			if err != nil {
				t.Fatalf("failed to read click count: %v", err)
			}
			if count == 3 {
				break
			}
			time.Sleep(50 * time.Millisecond)
		}

		if count != 3 {
			t.Errorf("expected click count 3, got %d", count)
		}
	})

	t.Run("resolve non-existent code", func(t *testing.T) {
		rr, _ := app.doJSON(t, "GET", "/never-created", "", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestConcurrentClickTracking_E2E(t *testing.T) {
	app := setupTestApp(t)
	defer app.cleanup()

	ctx := context.Background()
	access, _ := app.registerAndLogin(t, "burster")

	rr, _ := app.doJSON(t, "POST", "/api/links", access, map[string]string{
		"url":          "https://example.com/burst",
		"custom_alias": "burst",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("failed to create link: status %d", rr.Code)
	}

	const resolutions = 20
	codes := make([]int, resolutions)

	var wg sync.WaitGroup
	for i := 0; i < resolutions; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := httptest.NewRequest("GET", "/burst", nil)
			w := httptest.NewRecorder()
			app.router.ServeHTTP(w, req)
			codes[i] = w.Code
		}()
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusFound {
			t.Errorf("concurrent resolve %d: status %d, want 302", i, code)
		}
	}

	// Increments run in the background, poll until they have all landed
	deadline := time.Now().Add(5 * time.Second)
	var count int64
	for time.Now().Before(deadline) {
		err := app.dbPool.QueryRow(ctx,
			`SELECT click_count FROM links WHERE short_code = $1`,
			"burst",
		).Scan(&count)
		if err != nil {
			t.Fatalf("failed to read click count: %v", err)
		}
		if count == resolutions {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if count != resolutions {
		t.Errorf("expected click count %d, got %d", resolutions, count)
	}
}

func TestDeleteLink_E2E(t *testing.T) {
	app := setupTestApp(t)
	defer app.cleanup()

	ownerAccess, _ := app.registerAndLogin(t, "owner")
	otherAccess, _ := app.registerAndLogin(t, "other")

	rr, _ := app.doJSON(t, "POST", "/api/links", ownerAccess, map[string]string{
		"url":          "https://example.com/to-delete",
		"custom_alias": "delete-me",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("failed to create link: status %d", rr.Code)
	}

	t.Run("another account cannot delete the link", func(t *testing.T) {
		rr, _ := app.doJSON(t, "DELETE", "/api/links/delete-me", otherAccess, nil)
		if rr.Code != http.StatusForbidden {
			t.Errorf("expected status 403, got %d", rr.Code)
		}
	})

	t.Run("the owner deletes the link", func(t *testing.T) {
		rr, _ := app.doJSON(t, "DELETE", "/api/links/delete-me", ownerAccess, nil)
		if rr.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rr.Code)
		}
	})

	t.Run("a deleted link no longer resolves", func(t *testing.T) {
		rr, _ := app.doJSON(t, "GET", "/delete-me", "", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("the alias stays reserved after deletion", func(t *testing.T) {
		rr, _ := app.doJSON(t, "POST", "/api/links", ownerAccess, map[string]string{
			"url":          "https://example.com/reuse",
			"custom_alias": "delete-me",
		})
		if rr.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rr.Code)
		}
	})
}

func TestListAndStats_E2E(t *testing.T) {
	app := setupTestApp(t)
	defer app.cleanup()

	access, _ := app.registerAndLogin(t, "lister")

	for i := 0; i < 3; i++ {
		rr, _ := app.doJSON(t, "POST", "/api/links", access, map[string]string{
			"url": fmt.Sprintf("https://example.com/page-%d", i),
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("failed to create link %d: status %d", i, rr.Code)
		}
	}

	t.Run("lists the owner's links", func(t *testing.T) {
		rr, resp := app.doJSON(t, "GET", "/api/links?page=0&size=10", access, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("list failed: status %d", rr.Code)
		}

		links, ok := resp["links"].([]any)
		if !ok {
			t.Fatalf("expected links array, got %v", resp["links"])
		}
		if len(links) != 3 {
			t.Errorf("expected 3 links, got %d", len(links))
		}
	})

	t.Run("stats count the owner's links", func(t *testing.T) {
		rr, resp := app.doJSON(t, "GET", "/api/links/stats", access, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("stats failed: status %d", rr.Code)
		}

		if resp["active_count"] != float64(3) {
			t.Errorf("expected active_count 3, got %v", resp["active_count"])
		}
	})

	t.Run("another account sees an empty list", func(t *testing.T) {
		otherAccess, _ := app.registerAndLogin(t, "empty")

		rr, resp := app.doJSON(t, "GET", "/api/links", otherAccess, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("list failed: status %d", rr.Code)
		}
		links, _ := resp["links"].([]any)
		if len(links) != 0 {
			t.Errorf("expected 0 links, got %d", len(links))
		}
	})
}

// Helper functions

func runMigrations(connStr string) error {
	// This is a simplified migration runner for tests
	// In production, you'd use golang-migrate or similar
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrationSQL, err := os.ReadFile("../../migrations/001_init.sql")
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, string(migrationSQL))
	return err
}

func setupTestLogger() *slog.Logger {
	// Create a no-op logger for tests
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	})
	return slog.New(handler)
}
