/*
Package confluo provides an embeddable record store with compiled filter
expressions, designed for workloads that install a condition once and
test it against every incoming record with no per-record parsing cost.

Records follow a fixed, schema-described layout and live in an
append-only memory-mapped data log. A filter such as

	(a > 5 AND b == "x") OR c != 10

is compiled once into disjunctive normal form bound to the schema:
field names resolve to indexes, literals parse into the field's declared
type, and structurally identical clauses collapse into one. The compiled
form is immutable and is tested concurrently against records, or
directly against raw log bytes through a schema snapshot.

# Creating a store

	sc, err := schema.NewBuilder().
	    AddField("level", types.String(8)).
	    AddField("status", types.Int()).
	    Build()

	store, err := confluo.OpenStore(confluo.StoreOptions{
	    Name:   "events",
	    Path:   "./data/events.dat",
	    Schema: sc,
	})

# Triggers and queries

A trigger is a named condition evaluated against every appended record;
matches fire alerts that can be listed or streamed over a websocket. A
filter is the same compiled form used to scan the log on demand:

	store.AddTrigger("server_error", `status >= 500`)
	store.Append(map[string]any{"level": "error", "status": 502})

	records, err := store.Query(`level == "error" AND status >= 500`)

The cmd/confluod binary serves the same operations over a JSON HTTP
API, optionally protected by JWT bearer tokens.
*/
package confluo
