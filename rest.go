package confluo

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/awesome-nfv/confluo/schema"
	"github.com/awesome-nfv/confluo/types"
)

type Server struct {
	stores map[string]*Store
	mutex  sync.Mutex
	secret []byte
}

func NewServer() *Server {
	var secret []byte
	if globalConfig.AuthSecret != "" {
		secret = []byte(globalConfig.AuthSecret)
	}
	return &Server{
		stores: make(map[string]*Store),
		secret: secret,
	}
}

func (s *Server) storeNameToFileName(name string) string {
	return filepath.Join(globalConfig.DataFolder, name+".dat")
}

// Handler returns the API routes. All endpoints are JSON except the
// alert stream, which upgrades to a websocket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/stores", requireAuth(s.secret, s.handleStores))
	mux.HandleFunc("/api/v1/stores/", requireAuth(s.secret, s.handleStore))
	return mux
}

func (s *Server) handleStores(w http.ResponseWriter, r *http.Request) {
	log.Printf("Received %s request for %s", r.Method, r.URL.Path)

	switch r.Method {
	case http.MethodPost:
		var temp struct {
			Name   string `json:"name"`
			Fields []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"fields"`
		}
		if err := json.NewDecoder(r.Body).Decode(&temp); err != nil {
			log.Printf("Error decoding request body: %v", err)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if temp.Name == "" {
			http.Error(w, "Store name is required", http.StatusBadRequest)
			return
		}

		builder := schema.NewBuilder()
		for _, f := range temp.Fields {
			t, err := types.ParseType(f.Type)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			builder.AddField(f.Name, t)
		}
		sc, err := builder.Build()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mutex.Lock()
		defer s.mutex.Unlock()

		if _, exists := s.stores[temp.Name]; exists {
			log.Printf("Store %s already exists", temp.Name)
			http.Error(w, "Store already exists", http.StatusBadRequest)
			return
		}

		store, err := OpenStore(StoreOptions{
			Name:   temp.Name,
			Path:   s.storeNameToFileName(temp.Name),
			Schema: sc,
		})
		if err != nil {
			log.Printf("Error creating store %s: %v", temp.Name, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.stores[temp.Name] = store
		log.Printf("Store %s created successfully", temp.Name)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"message": "Store created successfully.", "store_name": temp.Name})

	case http.MethodGet:
		s.mutex.Lock()
		defer s.mutex.Unlock()

		var storesInfo []map[string]any
		for _, store := range s.stores {
			storesInfo = append(storesInfo, s.storeInfo(store))
		}
		json.NewEncoder(w).Encode(storesInfo)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) storeInfo(store *Store) map[string]any {
	fields := []map[string]string{}
	for _, f := range store.Schema().Fields() {
		fields = append(fields, map[string]string{"name": f.Name, "type": f.Type.String()})
	}
	return map[string]any{
		"name":        store.Name(),
		"fields":      fields,
		"record_size": store.Schema().RecordSize(),
		"num_records": store.NumRecords(),
		"filters":     store.Filters(),
		"triggers":    store.Triggers(),
	}
}

// handleStore dispatches /api/v1/stores/{name}[/...] requests.
func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	log.Printf("Received %s request for %s", r.Method, r.URL.Path)

	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}
	storeName := parts[4]

	s.mutex.Lock()
	store, exists := s.stores[storeName]
	s.mutex.Unlock()

	if !exists {
		log.Printf("Store %s not found", storeName)
		http.Error(w, "Store not found", http.StatusNotFound)
		return
	}

	if len(parts) == 5 {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(s.storeInfo(store))
		case http.MethodDelete:
			s.mutex.Lock()
			delete(s.stores, storeName)
			s.mutex.Unlock()
			store.Close()
			os.Remove(s.storeNameToFileName(storeName))
			json.NewEncoder(w).Encode(map[string]string{"message": "Store deleted successfully."})
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[5] {
	case "records":
		s.handleRecords(w, r, store)
	case "filters":
		s.handleExpressions(w, r, store, "filter")
	case "triggers":
		s.handleExpressions(w, r, store, "trigger")
	case "alerts":
		if len(parts) > 6 && parts[6] == "stream" {
			s.handleAlertStream(w, r, store)
			return
		}
		s.handleAlerts(w, r, store)
	default:
		http.Error(w, "Invalid path", http.StatusBadRequest)
	}
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request, store *Store) {
	switch r.Method {
	case http.MethodPost:
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		offset, err := store.Append(fields)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"offset": offset})

	case http.MethodGet:
		// ?filter=<expression> runs an ad-hoc query; ?name=<filter>
		// runs an installed one. No parameter returns everything.
		var (
			records []schema.Record
			err     error
		)
		if name := r.URL.Query().Get("name"); name != "" {
			records, err = store.QueryFilter(name)
		} else {
			records, err = store.Query(r.URL.Query().Get("filter"))
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		out := []map[string]any{}
		for _, rec := range records {
			fields := store.RecordFields(rec)
			fields["_offset"] = rec.Offset
			out = append(out, fields)
		}
		json.NewEncoder(w).Encode(out)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleExpressions(w http.ResponseWriter, r *http.Request, store *Store, kind string) {
	switch r.Method {
	case http.MethodPost:
		var temp struct {
			Name       string `json:"name"`
			Expression string `json:"expression"`
		}
		if err := json.NewDecoder(r.Body).Decode(&temp); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if temp.Name == "" {
			http.Error(w, "Name is required", http.StatusBadRequest)
			return
		}

		var err error
		if kind == "trigger" {
			err = store.AddTrigger(temp.Name, temp.Expression)
		} else {
			err = store.AddFilter(temp.Name, temp.Expression)
		}
		if err != nil {
			log.Printf("Error installing %s %q on %s: %v", kind, temp.Name, store.Name(), err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"message": fmt.Sprintf("%s created successfully.", kind)})

	case http.MethodGet:
		if kind == "trigger" {
			json.NewEncoder(w).Encode(store.Triggers())
		} else {
			json.NewEncoder(w).Encode(store.Filters())
		}

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request, store *Store) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	since := uint64(0)
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "Invalid since parameter", http.StatusBadRequest)
			return
		}
		since = n
	}
	alerts := store.Alerts(since)
	if alerts == nil {
		alerts = []Alert{}
	}
	json.NewEncoder(w).Encode(alerts)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleAlertStream upgrades the connection and pushes alerts as they
// fire until the client goes away or falls behind.
func (s *Server) handleAlertStream(w http.ResponseWriter, r *http.Request, store *Store) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	ch := store.SubscribeAlerts()
	defer store.UnsubscribeAlerts(ch)

	// Unsubscribing closes ch, which ends the write loop below when the
	// client goes away between alerts.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				store.UnsubscribeAlerts(ch)
				return
			}
		}
	}()

	for alert := range ch {
		if err := conn.WriteJSON(alert); err != nil {
			log.Printf("Alert stream for %s closed: %v", store.Name(), err)
			return
		}
	}
}

// RunServer starts the HTTP API on the configured host. It blocks.
func RunServer() error {
	if err := os.MkdirAll(globalConfig.DataFolder, 0755); err != nil {
		return err
	}
	server := NewServer()
	log.Printf("Listening on %s", globalConfig.Host)
	return http.ListenAndServe(globalConfig.Host, server.Handler())
}
