package confluo

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/awesome-nfv/confluo/query"
	"github.com/awesome-nfv/confluo/schema"
)

// StoreOptions defines the configuration for creating a Store.
type StoreOptions struct {
	// Name identifies the store; it becomes the data file name.
	Name string

	// Path is the full path of the backing data log file.
	Path string

	// Schema is the fixed record layout for the store.
	Schema *schema.Schema
}

// Store is a schema-described append-only record log together with the
// filters and triggers installed on it. Filters and triggers are
// compiled once at install time; every Append then tests the raw record
// bytes against each trigger through a schema snapshot, and queries
// test decoded records against a compiled filter.
type Store struct {
	name   string
	schema *schema.Schema
	snap   schema.Snapshot
	log    *dataLog
	alerts *alertLog

	mu       sync.RWMutex
	filters  map[string]query.CompiledExpression
	triggers map[string]query.CompiledExpression
}

// OpenStore opens or creates a store backed by the data log at
// opts.Path.
func OpenStore(opts StoreOptions) (*Store, error) {
	if opts.Schema == nil {
		return nil, fmt.Errorf("store %q: no schema", opts.Name)
	}
	dl, err := openDataLog(opts.Path)
	if err != nil {
		return nil, err
	}
	return &Store{
		name:     opts.Name,
		schema:   opts.Schema,
		snap:     opts.Schema.Snapshot(),
		log:      dl,
		alerts:   newAlertLog(),
		filters:  make(map[string]query.CompiledExpression),
		triggers: make(map[string]query.CompiledExpression),
	}, nil
}

func (s *Store) Name() string           { return s.name }
func (s *Store) Schema() *schema.Schema { return s.schema }

// NumRecords returns the number of records in the log.
func (s *Store) NumRecords() int { return s.log.NumRecords() }

// Append packs the given field values into the raw record layout,
// writes them to the log and evaluates every installed trigger against
// the raw bytes. Matching triggers fire alerts.
func (s *Store) Append(fields map[string]any) (int64, error) {
	raw, err := s.schema.Pack(fields)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	offset, err := s.log.Append(uint64(now.UnixNano()), raw)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, expr := range s.triggers {
		if expr.TestRaw(s.snap, raw) {
			rec := s.schema.Apply(offset, uint64(now.UnixNano()), raw)
			alert := s.alerts.add(Alert{
				Time:    now,
				Trigger: name,
				Offset:  offset,
				Record:  s.recordFields(rec),
			})
			log.Printf("store %s: trigger %q fired for record at %d (alert %d)",
				s.name, name, offset, alert.Seq)
		}
	}
	return offset, nil
}

// AddFilter compiles and installs a named filter. Compilation errors
// abort the install; nothing is stored.
func (s *Store) AddFilter(name, expr string) error {
	compiled, err := query.FilterFromQuery(expr, s.schema)
	if err != nil {
		return fmt.Errorf("filter %q: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.filters[name]; exists {
		return fmt.Errorf("filter %q already exists", name)
	}
	s.filters[name] = compiled
	return nil
}

// AddTrigger compiles and installs a named trigger condition. Every
// record appended afterwards is tested against it.
func (s *Store) AddTrigger(name, expr string) error {
	compiled, err := query.FilterFromQuery(expr, s.schema)
	if err != nil {
		return fmt.Errorf("trigger %q: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.triggers[name]; exists {
		return fmt.Errorf("trigger %q already exists", name)
	}
	s.triggers[name] = compiled
	return nil
}

// Filters lists installed filter names with their canonical forms.
func (s *Store) Filters() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.filters))
	for name, expr := range s.filters {
		out[name] = expr.String()
	}
	return out
}

// Triggers lists installed trigger names with their canonical forms.
func (s *Store) Triggers() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.triggers))
	for name, expr := range s.triggers {
		out[name] = expr.String()
	}
	return out
}

// Query compiles an ad-hoc filter expression and scans the log for
// matching records. An empty expression matches everything.
func (s *Store) Query(expr string) ([]schema.Record, error) {
	compiled, err := query.FilterFromQuery(expr, s.schema)
	if err != nil {
		return nil, err
	}
	return s.scan(compiled)
}

// QueryFilter scans the log with a previously installed filter.
func (s *Store) QueryFilter(name string) ([]schema.Record, error) {
	s.mu.RLock()
	compiled, ok := s.filters[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no filter %q", name)
	}
	return s.scan(compiled)
}

func (s *Store) scan(compiled query.CompiledExpression) ([]schema.Record, error) {
	var out []schema.Record
	err := s.log.Scan(func(offset int64, timestamp uint64, payload []byte) bool {
		if compiled.TestRaw(s.snap, payload) {
			out = append(out, s.schema.Apply(offset, timestamp, payload))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Alerts returns alerts fired after the given sequence number.
func (s *Store) Alerts(since uint64) []Alert {
	return s.alerts.since(since)
}

// SubscribeAlerts returns a channel receiving alerts as they fire.
func (s *Store) SubscribeAlerts() chan Alert {
	return s.alerts.subscribe()
}

// UnsubscribeAlerts releases a subscription channel.
func (s *Store) UnsubscribeAlerts(ch chan Alert) {
	s.alerts.unsubscribe(ch)
}

// RecordFields renders a record as a field-name-to-value map for JSON
// responses.
func (s *Store) RecordFields(rec schema.Record) map[string]any {
	return s.recordFields(rec)
}

func (s *Store) recordFields(rec schema.Record) map[string]any {
	out := make(map[string]any, s.schema.NumFields())
	for i := 0; i < s.schema.NumFields(); i++ {
		out[s.schema.Field(i).Name] = rec.At(i).Any()
	}
	return out
}

// Close syncs and closes the backing data log.
func (s *Store) Close() error {
	return s.log.Close()
}
