// Package profile keeps the farm profile in SQLite behind a short-lived cache.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownKey   = errors.New("unknown profile key")
	ErrInvalidValue = errors.New("invalid profile value")
)

// Store defines the storage operations the Manager needs.
// Implemented by storage.Store.
type Store interface {
	SetProfileKey(ctx context.Context, key, value string) error
	DeleteProfileKey(ctx context.Context, key string) error
	GetAllProfileKeys(ctx context.Context) (map[string]string, error)
}

type kind int

const (
	kString kind = iota
	kFloat
	kBool
	kList
)

type keySpec struct {
	kind  kind
	check func(float64) bool
	apply func(p *Profile, raw string) error
}

var specs = map[string]keySpec{
	"farm.name": {kind: kString, apply: func(p *Profile, raw string) error {
		p.FarmName = raw
		return nil
	}},
	"location.place": {kind: kString, apply: func(p *Profile, raw string) error {
		p.Place = raw
		return nil
	}},
	"location.lat": {
		kind:  kFloat,
		check: func(f float64) bool { return f >= -90 && f <= 90 },
		apply: func(p *Profile, raw string) error { return parseFloatPtr(raw, &p.Lat) },
	},
	"location.lon": {
		kind:  kFloat,
		check: func(f float64) bool { return f >= -180 && f <= 180 },
		apply: func(p *Profile, raw string) error { return parseFloatPtr(raw, &p.Lon) },
	},
	"crops": {kind: kList, apply: func(p *Profile, raw string) error {
		return json.Unmarshal([]byte(raw), &p.Crops)
	}},
	"field.area_hectares": {
		kind:  kFloat,
		check: func(f float64) bool { return f > 0 },
		apply: func(p *Profile, raw string) (err error) {
			p.AreaHectares, err = strconv.ParseFloat(raw, 64)
			return err
		},
	},
	"treatment.prefer_organic": {kind: kBool, apply: func(p *Profile, raw string) (err error) {
		p.PreferOrganic, err = strconv.ParseBool(raw)
		return err
	}},
}

func parseFloatPtr(raw string, dst **float64) error {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*dst = &f
	return nil
}

// Keys returns the settable profile keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type Option func(*Manager)

// WithClock replaces the clock used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// Manager provides cached, structured access to the farm profile.
type Manager struct {
	store Store
	now   func() time.Time
	ttl   time.Duration

	mu       sync.RWMutex
	cached   *Profile
	cachedAt time.Time
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		now:   time.Now,
		ttl:   60 * time.Second,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Get returns the profile, reading storage only when the cache has expired.
// An empty store yields a zero Profile.
func (m *Manager) Get(ctx context.Context) (Profile, error) {
	m.mu.RLock()
	if m.fresh() {
		p := m.cached.clone()
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fresh() {
		return m.cached.clone(), nil
	}

	keys, err := m.store.GetAllProfileKeys(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile keys: %w", err)
	}
	p := build(keys)
	m.cached = &p
	m.cachedAt = m.now()
	return p.clone(), nil
}

func (m *Manager) fresh() bool {
	return m.cached != nil && m.now().Before(m.cachedAt.Add(m.ttl))
}

// Set validates and persists one key, then invalidates the cache. An empty
// value clears the key. Lists are given comma-separated.
func (m *Manager) Set(ctx context.Context, key, value string) error {
	spec, ok := specs[key]
	if !ok {
		return fmt.Errorf("%w %q (valid: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	value = strings.TrimSpace(value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil

	if value == "" {
		return m.store.DeleteProfileKey(ctx, key)
	}
	stored, err := normalize(spec, value)
	if err != nil {
		return fmt.Errorf("%w for %s: %v", ErrInvalidValue, key, err)
	}
	return m.store.SetProfileKey(ctx, key, stored)
}

func normalize(spec keySpec, value string) (string, error) {
	switch spec.kind {
	case kFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", err
		}
		if spec.check != nil && !spec.check(f) {
			return "", fmt.Errorf("%s is out of range", value)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case kBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case kList:
		var items []string
		for _, it := range strings.Split(value, ",") {
			if it = strings.TrimSpace(it); it != "" {
				items = append(items, it)
			}
		}
		if len(items) == 0 {
			return "", errors.New("list is empty")
		}
		b, err := json.Marshal(items)
		return string(b), err
	default:
		return value, nil
	}
}

// build assembles a Profile from stored key-value pairs, skipping values
// that no longer parse.
func build(keys map[string]string) Profile {
	var p Profile
	for key, raw := range keys {
		spec, ok := specs[key]
		if !ok {
			continue
		}
		if err := spec.apply(&p, raw); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("malformed profile key, skipping")
		}
	}
	return p
}

func (p *Profile) clone() Profile {
	cp := *p
	if p.Crops != nil {
		cp.Crops = append([]string(nil), p.Crops...)
	}
	if p.Lat != nil {
		lat := *p.Lat
		cp.Lat = &lat
	}
	if p.Lon != nil {
		lon := *p.Lon
		cp.Lon = &lon
	}
	return cp
}
