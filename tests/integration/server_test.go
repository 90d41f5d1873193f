package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jezdimedoprace/carpool/pkg/carpool/auth"
	"github.com/jezdimedoprace/carpool/pkg/carpool/database"
	"github.com/jezdimedoprace/carpool/pkg/carpool/groups"
	"github.com/jezdimedoprace/carpool/pkg/carpool/models"
	"github.com/jezdimedoprace/carpool/pkg/carpool/rides"
	"github.com/jezdimedoprace/carpool/pkg/carpool/server"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

// setupTestDB creates a file-backed SQLite database with the server's
// connection settings
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "carpool.db"))
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// setupFullServer creates the engine exactly as cmd/carpool-server does,
// with a fixed ride week clock
func setupFullServer(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return server.New(db, server.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:  func() time.Time { return testNow },
	})
}

func call(t *testing.T, router *gin.Engine, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if out != nil {
		if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode response %q: %v", method, path, resp.Body.String(), err)
		}
	}
	return resp.Code
}

func register(t *testing.T, router *gin.Engine, email, name string) auth.AuthResponse {
	t.Helper()
	var out auth.AuthResponse
	code := call(t, router, "POST", "/api/auth/register", "", auth.RegisterRequest{
		Email:    email,
		Password: "password123",
		Name:     name,
	}, &out)
	if code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d", email, code)
	}
	return out
}

// TestServerStartup verifies that all routes can be registered without conflicts
func TestServerStartup(t *testing.T) {
	db := setupTestDB(t)

	// This will panic if there are route conflicts
	router := setupFullServer(db)

	if router == nil {
		t.Fatal("Expected router to be created")
	}
}

// TestProtectedEndpointsRequireAuth verifies that protected endpoints return 401 without auth
func TestProtectedEndpointsRequireAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	protectedEndpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/groups"},
		{"POST", "/api/groups"},
		{"GET", "/api/groups/new"},
		{"GET", "/api/groups/1"},
		{"GET", "/api/groups/1/rides"},
		{"PUT", "/api/groups/1/rides/1/order"},
		{"GET", "/api/groups/1/members"},
		{"DELETE", "/api/groups/1/members/2"},
		{"GET", "/api/auth/me"},
	}

	for _, endpoint := range protectedEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			resp := httptest.NewRecorder()

			router.ServeHTTP(resp, req)

			if resp.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401 for %s %s, got %d", endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestPublicEndpointsNoAuth verifies that public endpoints don't require auth
func TestPublicEndpointsNoAuth(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	publicEndpoints := []struct {
		method       string
		path         string
		expectedCode int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/health", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"POST", "/api/auth/register", http.StatusBadRequest}, // Bad request (no body), but not 401
		{"POST", "/api/auth/login", http.StatusBadRequest},    // Bad request (no body), but not 401
		{"GET", "/nonexistent", http.StatusNotFound},
	}

	for _, endpoint := range publicEndpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			resp := httptest.NewRecorder()

			router.ServeHTTP(resp, req)

			if resp.Code != endpoint.expectedCode {
				t.Errorf("Expected status %d for %s %s, got %d", endpoint.expectedCode, endpoint.method, endpoint.path, resp.Code)
			}
		})
	}
}

// TestRideWeekFlow walks a group from creation to a reordered ride
func TestRideWeekFlow(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)

	olga := register(t, router, "olga@example.com", "Olga")
	radek := register(t, router, "radek@example.com", "Radek")

	var created groups.CreateResponse
	code := call(t, router, "POST", "/api/groups", olga.Token, groups.CreateGroupRequest{Name: "Morning commute"}, &created)
	if code != http.StatusCreated || created.Group == nil {
		t.Fatalf("Expected group to be created, got %d %+v", code, created)
	}
	groupID := created.Group.ID

	code = call(t, router, "POST", fmt.Sprintf("/api/groups/%d/members", groupID), olga.Token, groups.AddMemberRequest{Email: "radek@example.com"}, nil)
	if code != http.StatusCreated {
		t.Fatalf("Expected member to be added, got %d", code)
	}

	// Rides come from an external scheduling flow
	two := 2
	ride := models.Ride{
		GroupID:     groupID,
		Date:        testNow.Add(26 * time.Hour),
		MeetingName: "Office",
		MeetingLat:  50.0,
		MeetingLng:  14.0,
		Passengers:  []models.RidePassenger{{UserID: olga.User.ID}, {UserID: radek.User.ID}},
		Locations: []models.Location{
			{PassengerID: &olga.User.ID, Name: "Olga home", Lat: 50.02, Lng: 14.0, OrderNumber: &two},
			{PassengerID: &radek.User.ID, Name: "Radek home", Lat: 50.01, Lng: 14.0},
		},
	}
	if err := db.Create(&ride).Error; err != nil {
		t.Fatalf("Failed to create ride: %v", err)
	}

	var page groups.GroupPageResponse
	code = call(t, router, "GET", fmt.Sprintf("/api/groups/%d", groupID), radek.Token, nil, &page)
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}
	if len(page.Group.Members) != 2 || len(page.Rides) != 1 {
		t.Fatalf("Expected 2 members and 1 ride, got %+v", page)
	}
	if got := page.Rides[0].Waypoints[0].Name; got != "Radek home" {
		t.Errorf("Expected nearest stop first, got %s", got)
	}

	one := 1
	var reordered rides.RideTransfer
	code = call(t, router, "PUT", fmt.Sprintf("/api/groups/%d/rides/%d/order", groupID, ride.ID), radek.Token, rides.SetOrderRequest{
		Assignments: []rides.OrderAssignment{{LocationID: ride.Locations[0].ID, OrderNumber: &one}},
	}, &reordered)
	if code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", code)
	}
	if got := reordered.Waypoints[0].PassengerName; got != "Olga" {
		t.Errorf("Expected Olga first after reorder, got %s", got)
	}

	var week rides.WeekResponse
	call(t, router, "GET", fmt.Sprintf("/api/groups/%d/rides", groupID), olga.Token, nil, &week)
	if len(week.Rides) != 1 || week.Rides[0].Waypoints[0].Name != "Olga home" {
		t.Errorf("Expected stored order in the ride week, got %+v", week.Rides)
	}

	var list groups.ListResponse
	call(t, router, "GET", "/api/groups", radek.Token, nil, &list)
	if len(list.Groups) != 1 || list.Groups[0].IsOwner {
		t.Errorf("Expected one joined group, got %+v", list.Groups)
	}
}

// TestOwnershipLimitOverHTTP verifies the fifth owned group is refused
func TestOwnershipLimitOverHTTP(t *testing.T) {
	db := setupTestDB(t)
	router := setupFullServer(db)
	user := register(t, router, "owner@example.com", "Owner")

	for i := 0; i < models.MaxOwnedGroups; i++ {
		code := call(t, router, "POST", "/api/groups", user.Token, groups.CreateGroupRequest{Name: fmt.Sprintf("Group %d", i)}, nil)
		if code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d", code)
		}
	}

	var resp groups.CreateResponse
	code := call(t, router, "POST", "/api/groups", user.Token, groups.CreateGroupRequest{Name: "Fifth"}, &resp)
	if code != http.StatusConflict || !resp.Flags.OwnershipLimitReached {
		t.Errorf("Expected 409 with ownership_limit_reached, got %d %+v", code, resp.Flags)
	}
}
