package profile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock store ---

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error

	getAllCalls int
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) SetProfileKey(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockStore) DeleteProfileKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockStore) GetAllProfileKeys(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getAllCalls++
	if m.err != nil {
		return nil, m.err
	}
	cp := make(map[string]string, len(m.data))
	for k, v := range m.data {
		cp[k] = v
	}
	return cp, nil
}

// --- Mock clock ---

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var ctx = context.Background()

// --- Tests ---

func TestGet_Empty(t *testing.T) {
	mgr := NewManager(newMockStore())

	p, err := mgr.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)
	assert.False(t, p.HasLocation())
	assert.Empty(t, p.PrimaryCrop())
}

func TestSetAndGet(t *testing.T) {
	mgr := NewManager(newMockStore())

	require.NoError(t, mgr.Set(ctx, "farm.name", "Chebet Farm"))
	require.NoError(t, mgr.Set(ctx, "location.place", "Eldoret"))
	require.NoError(t, mgr.Set(ctx, "location.lat", "0.514"))
	require.NoError(t, mgr.Set(ctx, "location.lon", "35.27"))
	require.NoError(t, mgr.Set(ctx, "crops", " maize, beans ,"))
	require.NoError(t, mgr.Set(ctx, "field.area_hectares", "2.5"))
	require.NoError(t, mgr.Set(ctx, "treatment.prefer_organic", "true"))

	p, err := mgr.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Chebet Farm", p.FarmName)
	assert.Equal(t, "Eldoret", p.Place)
	require.NotNil(t, p.Lat)
	assert.InDelta(t, 0.514, *p.Lat, 1e-9)
	assert.Equal(t, []string{"maize", "beans"}, p.Crops)
	assert.Equal(t, 2.5, p.AreaHectares)
	assert.True(t, p.PreferOrganic)
	assert.True(t, p.HasLocation())
	assert.Empty(t, p.PrimaryCrop())
}

func TestSet_StoredNormalized(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	require.NoError(t, mgr.Set(ctx, "crops", "maize"))
	require.NoError(t, mgr.Set(ctx, "treatment.prefer_organic", "1"))
	require.NoError(t, mgr.Set(ctx, "field.area_hectares", "3.50"))

	assert.Equal(t, `["maize"]`, store.data["crops"])
	assert.Equal(t, "true", store.data["treatment.prefer_organic"])
	assert.Equal(t, "3.5", store.data["field.area_hectares"])

	p, err := mgr.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "maize", p.PrimaryCrop())
}

func TestSet_Invalid(t *testing.T) {
	mgr := NewManager(newMockStore())

	err := mgr.Set(ctx, "soil.ph", "6")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Contains(t, err.Error(), "location.place")

	for key, value := range map[string]string{
		"location.lat":             "91",
		"location.lon":             "east",
		"field.area_hectares":      "0",
		"treatment.prefer_organic": "sometimes",
		"crops":                    " , ",
	} {
		assert.ErrorIs(t, mgr.Set(ctx, key, value), ErrInvalidValue, key)
	}
}

func TestSet_EmptyClears(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	require.NoError(t, mgr.Set(ctx, "location.place", "Nakuru"))
	require.NoError(t, mgr.Set(ctx, "location.place", "  "))
	assert.NotContains(t, store.data, "location.place")

	p, err := mgr.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, p.Place)
}

func TestGet_CacheHonoursTTL(t *testing.T) {
	store := newMockStore()
	clock := &mockClock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	mgr := NewManager(store, WithClock(clock.Now), WithTTL(time.Minute))

	_, err := mgr.Get(ctx)
	require.NoError(t, err)
	_, err = mgr.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.getAllCalls)

	clock.Advance(2 * time.Minute)
	_, err = mgr.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.getAllCalls)
}

func TestSet_InvalidatesCache(t *testing.T) {
	store := newMockStore()
	mgr := NewManager(store)

	_, err := mgr.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, mgr.Set(ctx, "location.place", "Kisumu"))

	p, err := mgr.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Kisumu", p.Place)
	assert.Equal(t, 2, store.getAllCalls)
}

func TestGet_ReturnsCopy(t *testing.T) {
	mgr := NewManager(newMockStore())
	require.NoError(t, mgr.Set(ctx, "crops", "maize,beans"))
	require.NoError(t, mgr.Set(ctx, "location.lat", "1"))

	p, err := mgr.Get(ctx)
	require.NoError(t, err)
	p.Crops[0] = "changed"
	*p.Lat = 50

	again, err := mgr.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "maize", again.Crops[0])
	assert.Equal(t, 1.0, *again.Lat)
}

func TestGet_SkipsMalformed(t *testing.T) {
	store := newMockStore()
	store.data["crops"] = "not json"
	store.data["location.place"] = "Eldoret"
	store.data["legacy.key"] = "x"

	p, err := NewManager(store).Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, p.Crops)
	assert.Equal(t, "Eldoret", p.Place)
}

func TestGet_StoreError(t *testing.T) {
	store := newMockStore()
	store.err = errors.New("disk gone")

	_, err := NewManager(store).Get(ctx)
	assert.ErrorContains(t, err, "disk gone")
}

func TestConcurrentAccess(t *testing.T) {
	mgr := NewManager(newMockStore())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				assert.NoError(t, mgr.Set(ctx, "location.place", "Eldoret"))
				return
			}
			_, err := mgr.Get(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestKeysSorted(t *testing.T) {
	keys := Keys()
	assert.IsNonDecreasing(t, keys)
	assert.Contains(t, keys, "treatment.prefer_organic")
}
