package confluo

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/awesome-nfv/confluo/schema"
	"github.com/awesome-nfv/confluo/types"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	Configure(Config{DataFolder: t.TempDir(), Host: "127.0.0.1:0"})
	return NewServer()
}

func addTestStore(t *testing.T, server *Server, name string) *Store {
	t.Helper()
	sc, err := schema.NewBuilder().
		AddField("level", types.String(8)).
		AddField("status", types.Int()).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	store, err := OpenStore(StoreOptions{
		Name:   name,
		Path:   filepath.Join(globalConfig.DataFolder, name+".dat"),
		Schema: sc,
	})
	if err != nil {
		t.Fatal(err)
	}
	server.stores[name] = store
	return store
}

func TestCreateStore(t *testing.T) {
	server := setupTestServer(t)

	body := `{"name": "events", "fields": [
		{"name": "level", "type": "string(8)"},
		{"name": "status", "type": "int"}
	]}`
	req, err := http.NewRequest(http.MethodPost, "/api/v1/stores", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(server.handleStores).ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if _, exists := server.stores["events"]; !exists {
		t.Error("store was not registered")
	}

	// Creating it again fails.
	req, _ = http.NewRequest(http.MethodPost, "/api/v1/stores", bytes.NewBufferString(body))
	rr = httptest.NewRecorder()
	http.HandlerFunc(server.handleStores).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("duplicate create: status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreateStoreBadType(t *testing.T) {
	server := setupTestServer(t)

	body := `{"name": "events", "fields": [{"name": "x", "type": "blob"}]}`
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/stores", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(server.handleStores).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestInsertAndQueryRecords(t *testing.T) {
	server := setupTestServer(t)
	addTestStore(t, server, "events")

	insert := func(level string, status int) {
		body, _ := json.Marshal(map[string]any{"level": level, "status": status})
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/stores/events/records", bytes.NewBuffer(body))
		rr := httptest.NewRecorder()
		http.HandlerFunc(server.handleStore).ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("insert status = %d: %s", rr.Code, rr.Body.String())
		}
	}
	insert("info", 200)
	insert("error", 500)
	insert("error", 404)

	req, _ := http.NewRequest(http.MethodGet,
		"/api/v1/stores/events/records?filter=level+%3D%3D+%22error%22+AND+status+%3E%3D+500", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(server.handleStore).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("query status = %d: %s", rr.Code, rr.Body.String())
	}

	var results []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &results); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0]["level"] != "error" {
		t.Errorf("level = %v, want error", results[0]["level"])
	}
}

func TestQueryBadFilter(t *testing.T) {
	server := setupTestServer(t)
	addTestStore(t, server, "events")

	req, _ := http.NewRequest(http.MethodGet,
		"/api/v1/stores/events/records?filter=nosuchfield+%3D+1", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(server.handleStore).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestInstallTriggerAndListAlerts(t *testing.T) {
	server := setupTestServer(t)
	addTestStore(t, server, "events")

	body := `{"name": "errors", "expression": "status >= 500"}`
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/stores/events/triggers", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(server.handleStore).ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("trigger install status = %d: %s", rr.Code, rr.Body.String())
	}

	// A bad expression is rejected at install time.
	body = `{"name": "bad", "expression": "status @ 5"}`
	req, _ = http.NewRequest(http.MethodPost, "/api/v1/stores/events/triggers", bytes.NewBufferString(body))
	rr = httptest.NewRecorder()
	http.HandlerFunc(server.handleStore).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad trigger status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	recordBody, _ := json.Marshal(map[string]any{"level": "error", "status": 503})
	req, _ = http.NewRequest(http.MethodPost, "/api/v1/stores/events/records", bytes.NewBuffer(recordBody))
	rr = httptest.NewRecorder()
	http.HandlerFunc(server.handleStore).ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("insert status = %d", rr.Code)
	}

	req, _ = http.NewRequest(http.MethodGet, "/api/v1/stores/events/alerts", nil)
	rr = httptest.NewRecorder()
	http.HandlerFunc(server.handleStore).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("alerts status = %d", rr.Code)
	}

	var alerts []Alert
	if err := json.Unmarshal(rr.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("decoding alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Trigger != "errors" {
		t.Errorf("alerts = %+v", alerts)
	}
}

func TestStoreNotFound(t *testing.T) {
	server := setupTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/stores/ghost", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(server.handleStore).ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeleteStore(t *testing.T) {
	server := setupTestServer(t)
	addTestStore(t, server, "events")

	req, _ := http.NewRequest(http.MethodDelete, "/api/v1/stores/events", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(server.handleStore).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if _, exists := server.stores["events"]; exists {
		t.Error("store still registered after delete")
	}
}

func TestAuthRequired(t *testing.T) {
	Configure(Config{DataFolder: t.TempDir(), Host: "127.0.0.1:0", AuthSecret: "s3cret"})
	server := NewServer()
	handler := server.Handler()

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/stores", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	token, err := GenerateToken("test", []byte("s3cret"))
	if err != nil {
		t.Fatal(err)
	}
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/stores", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want %d", rr.Code, http.StatusOK)
	}
}
