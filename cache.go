package relic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/relic/dialect"
)

// Cache is the interface for caching query results. Implement it with
// your preferred store; MemoryCache is the bundled in-process one.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// MemoryCache is a minimal in-process Cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	return e.value, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// wireValue is the msgpack representation of a dialect.Value.
type wireValue struct {
	Kind uint8   `msgpack:"k"`
	Int  int64   `msgpack:"i,omitempty"`
	Real float64 `msgpack:"r,omitempty"`
	Text string  `msgpack:"t,omitempty"`
	Blob []byte  `msgpack:"b,omitempty"`
}

func toWire(v dialect.Value) wireValue {
	w := wireValue{Kind: uint8(v.Kind())}
	switch v.Kind() {
	case dialect.KindInteger:
		w.Int, _ = v.Int64()
	case dialect.KindReal:
		w.Real, _ = v.Float64()
	case dialect.KindText:
		w.Text, _ = v.Text()
	case dialect.KindBlob:
		w.Blob, _ = v.Bytes()
	}
	return w
}

func fromWire(w wireValue) (dialect.Value, error) {
	switch dialect.Kind(w.Kind) {
	case dialect.KindNull:
		return dialect.Null(), nil
	case dialect.KindInteger:
		return dialect.Integer(w.Int), nil
	case dialect.KindReal:
		return dialect.Real(w.Real), nil
	case dialect.KindText:
		return dialect.Text(w.Text), nil
	case dialect.KindBlob:
		return dialect.Blob(w.Blob), nil
	default:
		return dialect.Value{}, fmt.Errorf("relic: cache: unknown value kind %d", w.Kind)
	}
}

func encodeRows(rows [][]dialect.Value) ([]byte, error) {
	wire := make([][]wireValue, len(rows))
	for i, row := range rows {
		wire[i] = make([]wireValue, len(row))
		for j, v := range row {
			wire[i][j] = toWire(v)
		}
	}
	return msgpack.Marshal(wire)
}

func decodeCachedRows(data []byte) (dialect.Rows, error) {
	var wire [][]wireValue
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("relic: cache: %w", err)
	}
	rows := make([]dialect.Row, len(wire))
	for i, wr := range wire {
		vals := make([]dialect.Value, len(wr))
		for j, w := range wr {
			v, err := fromWire(w)
			if err != nil {
				return nil, err
			}
			vals[j] = v
		}
		rows[i] = dialect.NewRow(vals...)
	}
	return dialect.RowsOf(rows...), nil
}

// cacheKey derives the cache key from the statement text and its bound
// parameters. Two queries share an entry only if both match exactly.
func cacheKey(query string, args []dialect.Value) string {
	key := query
	for _, a := range args {
		key += "|" + a.String()
	}
	return key
}

// QueryAllCached is QueryAll with a read-through cache: a hit replays the
// stored rows through Decode, a miss runs the query and stores the raw
// rows for ttl. Writers are responsible for invalidation; this layer
// never does it implicitly.
func QueryAllCached[T any, PT ModelPtr[T]](ctx context.Context, drv dialect.Driver, c Cache, q *Query, ttl time.Duration) ([]*T, error) {
	var probe T
	query, args, err := q.selectSQL(columnNames(PT(&probe)))
	if err != nil {
		return nil, err
	}
	key := cacheKey(query, args)
	if data, err := c.Get(ctx, key); err == nil && data != nil {
		rows, err := decodeCachedRows(data)
		if err != nil {
			return nil, err
		}
		return decodeRows[T, PT](ctx, q.table, rows)
	}
	rows, err := drv.Query(ctx, query, args)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	defer rows.Close()
	raw, err := materialize(ctx, rows)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	data, err := encodeRows(raw)
	if err != nil {
		return nil, fmt.Errorf("relic: cache: %w", err)
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return nil, fmt.Errorf("relic: cache: %w", err)
	}
	replay := make([]dialect.Row, len(raw))
	for i, vals := range raw {
		replay[i] = dialect.NewRow(vals...)
	}
	return decodeRows[T, PT](ctx, q.table, dialect.RowsOf(replay...))
}

func materialize(ctx context.Context, rows dialect.Rows) ([][]dialect.Value, error) {
	var out [][]dialect.Value
	for {
		row, err := rows.Next(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return out, nil
		}
		vals := make([]dialect.Value, row.Len())
		for i := range vals {
			v, err := row.Get(i)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		out = append(out, vals)
	}
}
