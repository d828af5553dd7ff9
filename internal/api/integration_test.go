package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"vehiclefinder/internal/api/handlers"
	"vehiclefinder/internal/config"
	"vehiclefinder/internal/domain/entities"
	"vehiclefinder/internal/geo"
	"vehiclefinder/internal/repository"
	"vehiclefinder/internal/repository/datfile"
	"vehiclefinder/internal/repository/memory"
	"vehiclefinder/internal/services"
)

const testAdminToken = "s3cret"

var fleet = []*entities.VehiclePosition{
	entities.NewVehiclePosition(1, "TX-001", 34.544909, -102.10084, 1583000000),
	entities.NewVehiclePosition(2, "TX-002", 32.345544, -99.123124, 1583000000),
	entities.NewVehiclePosition(3, "TX-003", 33.234235, -100.21412, 1583000000),
	entities.NewVehiclePosition(4, "OK-004", 35.195739, -95.348899, 1583000000),
	entities.NewVehiclePosition(5, "UK-005", 51.5074, -0.1278, 1583000000),
}

func writeFleet(t *testing.T, positions []*entities.VehiclePosition) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "VehiclePositions.dat")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := datfile.Write(f, positions); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func setupTestServer(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := config.NewDefaultConfig()
	cfg.Source.Path = writeFleet(t, fleet)
	cfg.Auth.AdminToken = testAdminToken

	positionRepo := memory.NewPositionRepository()
	lockManager := memory.NewLockManager(time.Minute)
	t.Cleanup(lockManager.Stop)
	spatialIndex := geo.NewSpatialIndex(cfg.Index.Domain, cfg.Index.MaxDepth)

	indexService := services.NewIndexService(cfg, spatialIndex, positionRepo, lockManager, nil)
	if _, err := indexService.Load(context.Background(), datfile.NewSource(cfg.Source.Path)); err != nil {
		t.Fatal(err)
	}

	openSource := func(ctx context.Context) (repository.PositionSource, func() error, error) {
		return services.OpenSource(ctx, cfg.Source)
	}

	router := NewRouter(
		handlers.NewNearestHandler(indexService),
		handlers.NewVehicleHandler(indexService),
		handlers.NewIndexHandler(indexService, openSource),
		cfg.Auth.AdminToken,
	)
	engine := gin.New()
	router.Setup(engine)

	return engine
}

func TestHealthEndpoint(t *testing.T) {
	engine := setupTestServer(t)

	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID response header")
	}
}

func TestNearestEndpoint(t *testing.T) {
	engine := setupTestServer(t)

	req, _ := http.NewRequest("GET", "/nearest?lat=51.5&long=-0.12", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	var response services.NearestResult
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if !response.Found || response.Vehicle == nil {
		t.Fatalf("Expected a vehicle, got %+v", response)
	}
	if response.Vehicle.VehicleRegistration != "UK-005" {
		t.Errorf("Expected UK-005, got %s", response.Vehicle.VehicleRegistration)
	}
	if response.Geohash == "" {
		t.Error("Expected geohash in response")
	}
}

func TestNearestEndpoint_Geohash(t *testing.T) {
	engine := setupTestServer(t)

	req, _ := http.NewRequest("GET", "/nearest?geohash="+geo.Encode(51.5074, -0.1278, 9), nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	var response services.NearestResult
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if response.Vehicle == nil || response.Vehicle.VehicleRegistration != "UK-005" {
		t.Errorf("Expected UK-005, got %+v", response.Vehicle)
	}

	for _, hash := range []string{"abc!", "gcpvj0duq4s0bz"} {
		req, _ := http.NewRequest("GET", "/nearest?geohash="+hash, nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: expected status 400, got %d", hash, w.Code)
		}
	}
}

func TestNearestEndpoint_NoVehicle(t *testing.T) {
	engine := setupTestServer(t)

	// Outside the index domain.
	req, _ := http.NewRequest("GET", "/nearest?lat=95&long=10", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d. Body: %s", w.Code, w.Body.String())
	}
}

func TestNearestEndpoint_BadParams(t *testing.T) {
	engine := setupTestServer(t)

	for _, query := range []string{"", "?lat=10", "?long=10", "?lat=north&long=10"} {
		req, _ := http.NewRequest("GET", "/nearest"+query, nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: expected status 400, got %d", query, w.Code)
		}
	}
}

func TestNearestEndpoint_ZeroIsACoordinate(t *testing.T) {
	engine := setupTestServer(t)

	req, _ := http.NewRequest("GET", "/nearest?lat=0&long=0", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code == http.StatusBadRequest {
		t.Errorf("Expected lat=0&long=0 to be accepted, got 400. Body: %s", w.Body.String())
	}
}

func TestBatchNearestEndpoint(t *testing.T) {
	engine := setupTestServer(t)

	body := `{"coordinates":[{"lat":51.5,"long":-0.12},{"lat":95,"long":10},{"lat":34.544909,"long":-102.10084}]}`
	req, _ := http.NewRequest("POST", "/nearest/batch", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	var response struct {
		Results []services.NearestResult `json:"results"`
		Count   int                      `json:"count"`
		Found   int                      `json:"found"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if response.Count != 3 || response.Found != 2 {
		t.Fatalf("Expected 3 results with 2 found, got %d/%d", response.Count, response.Found)
	}
	if response.Results[0].Vehicle.VehicleID != 5 {
		t.Errorf("Expected vehicle 5 first, got %d", response.Results[0].Vehicle.VehicleID)
	}
	if response.Results[1].Found {
		t.Error("Expected no vehicle for the out-of-domain coordinate")
	}
	if response.Results[2].Vehicle.VehicleID != 1 {
		t.Errorf("Expected vehicle 1 last, got %d", response.Results[2].Vehicle.VehicleID)
	}
}

func TestBatchNearestEndpoint_MissingCoordinate(t *testing.T) {
	engine := setupTestServer(t)

	body := `{"coordinates":[{"lat":51.5}]}`
	req, _ := http.NewRequest("POST", "/nearest/batch", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestVehicleEndpoint(t *testing.T) {
	engine := setupTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/vehicles/3", http.StatusOK},
		{"/vehicles/99", http.StatusNotFound},
		{"/vehicles/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest("GET", tt.path, nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		if w.Code != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.path, tt.want, w.Code)
		}
	}
}

func TestIndexStatsEndpoint(t *testing.T) {
	engine := setupTestServer(t)

	req, _ := http.NewRequest("GET", "/index/stats", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var stats services.IndexStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Generation != 1 || stats.Positions != 5 || stats.Build.Inserted != 5 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestReloadEndpoint(t *testing.T) {
	engine := setupTestServer(t)

	req, _ := http.NewRequest("POST", "/index/reload", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}

	req, _ = http.NewRequest("POST", "/index/reload", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 with wrong token, got %d", w.Code)
	}

	req, _ = http.NewRequest("POST", "/index/reload", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["generation"] != float64(2) {
		t.Errorf("Expected generation 2, got %v", response["generation"])
	}
	if response["indexed"] != float64(5) {
		t.Errorf("Expected 5 indexed, got %v", response["indexed"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	engine := setupTestServer(t)

	req, _ := http.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("vehiclefinder_index_generation")) {
		t.Error("Expected index metrics in /metrics output")
	}
}
