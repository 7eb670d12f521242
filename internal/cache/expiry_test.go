package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/quick-kv/internal/value"
)

func TestDurationAddTo(t *testing.T) {
	base := time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)
	got := Duration{Years: 1, Months: 1, Days: 1, Hours: 2, Minutes: 3, Seconds: 4, Milliseconds: 500}.AddTo(base)
	assert.Equal(t, time.Date(2025, time.March, 4, 14, 3, 4, 500_000_000, time.UTC), got)

	got = Duration{Weeks: 1, Seconds: -1}.AddTo(base)
	assert.Equal(t, time.Date(2024, time.February, 7, 11, 59, 59, 0, time.UTC), got)
}

func TestParseDurationSpec(t *testing.T) {
	d, err := ParseDurationSpec(map[string]any{"y": 1, "M": 2, "m": 3, "ms": 4.0, "days": 5})
	require.NoError(t, err)
	assert.Equal(t, Duration{Years: 1, Months: 2, Minutes: 3, Milliseconds: 4, Days: 5}, d)

	d, err = ParseDurationSpec(&Duration{Hours: 1})
	require.NoError(t, err)
	assert.Equal(t, Duration{Hours: 1}, d)

	d, err = ParseDurationSpec(value.MustFrom(map[string]any{"seconds": -1}))
	require.NoError(t, err)
	assert.Equal(t, Duration{Seconds: -1}, d)

	d, err = ParseDurationSpec(map[string]int{"h": 2})
	require.NoError(t, err)
	assert.Equal(t, Duration{Hours: 2}, d)
}

func TestParseDurationSpecRejects(t *testing.T) {
	for name, spec := range map[string]any{
		"nil":          nil,
		"string":       "5m",
		"number":       300,
		"nil pointer":  (*Duration)(nil),
		"scalar value": value.Number(1),
		"unknown unit": map[string]any{"fortnights": 1},
		"fraction":     map[string]any{"days": 1.5},
		"not a number": map[string]any{"days": "two"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDurationSpec(spec)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestExpirySetRejectsUnstructured(t *testing.T) {
	db, _ := openTest(t, Config{})
	_, err := db.ExpirySet("k", "10m")
	assert.ErrorIs(t, err, ErrValidation)
	ok, err := db.Has("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpirySetStoresTimestamp(t *testing.T) {
	db, _ := openTest(t, Config{CacheEnabled: true})
	before := time.Now().Unix()
	at, err := db.ExpirySet("session", Duration{Minutes: 5})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, at, before+300)

	v, err := db.Get("session.expiry")
	require.NoError(t, err)
	n, ok := v.AsNumber()
	require.True(t, ok)
	assert.Equal(t, float64(at), n)
}
