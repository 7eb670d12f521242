package cache

import (
	"math"
	"time"

	"github.com/leonardcser/quick-kv/internal/value"
)

// ExpiryField is the nested field holding an entry's expiry as Unix seconds.
const ExpiryField = "expiry"

// Duration is a calendar-aware offset used by ExpirySet. Fields may be
// negative.
type Duration struct {
	Years        int `json:"years,omitempty"`
	Months       int `json:"months,omitempty"`
	Weeks        int `json:"weeks,omitempty"`
	Days         int `json:"days,omitempty"`
	Hours        int `json:"hours,omitempty"`
	Minutes      int `json:"minutes,omitempty"`
	Seconds      int `json:"seconds,omitempty"`
	Milliseconds int `json:"milliseconds,omitempty"`
}

// AddTo returns t shifted by d.
func (d Duration) AddTo(t time.Time) time.Time {
	t = t.AddDate(d.Years, d.Months, d.Weeks*7+d.Days)
	return t.Add(time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute +
		time.Duration(d.Seconds)*time.Second +
		time.Duration(d.Milliseconds)*time.Millisecond)
}

// unitAliases maps moment style unit names to canonical ones. "M" is
// months, "m" is minutes.
var unitAliases = map[string]string{
	"y": "years", "year": "years", "years": "years",
	"M": "months", "month": "months", "months": "months",
	"w": "weeks", "week": "weeks", "weeks": "weeks",
	"d": "days", "day": "days", "days": "days",
	"h": "hours", "hour": "hours", "hours": "hours",
	"m": "minutes", "minute": "minutes", "minutes": "minutes",
	"s": "seconds", "second": "seconds", "seconds": "seconds",
	"ms": "milliseconds", "millisecond": "milliseconds", "milliseconds": "milliseconds",
}

func (d *Duration) field(unit string) *int {
	switch unit {
	case "years":
		return &d.Years
	case "months":
		return &d.Months
	case "weeks":
		return &d.Weeks
	case "days":
		return &d.Days
	case "hours":
		return &d.Hours
	case "minutes":
		return &d.Minutes
	case "seconds":
		return &d.Seconds
	}
	return &d.Milliseconds
}

// ParseDurationSpec accepts a Duration, a *Duration, a map of unit to
// whole number (map[string]any or a map Value). Anything else is a
// validation error.
func ParseDurationSpec(spec any) (Duration, error) {
	switch s := spec.(type) {
	case Duration:
		return s, nil
	case *Duration:
		if s == nil {
			return Duration{}, validationErrorf("expiry duration is nil")
		}
		return *s, nil
	case value.Value:
		m, ok := s.Interface().(map[string]any)
		if !ok {
			return Duration{}, validationErrorf("expiry duration must be an object, got %s", s.Kind())
		}
		return parseDurationMap(m)
	case map[string]any:
		return parseDurationMap(s)
	case map[string]int:
		m := make(map[string]any, len(s))
		for k, n := range s {
			m[k] = n
		}
		return parseDurationMap(m)
	}
	return Duration{}, validationErrorf("expiry duration must be an object, got %T", spec)
}

func parseDurationMap(m map[string]any) (Duration, error) {
	var d Duration
	for unit, raw := range m {
		canonical, ok := unitAliases[unit]
		if !ok {
			return Duration{}, validationErrorf("unknown expiry unit %q", unit)
		}
		n, ok := wholeNumber(raw)
		if !ok {
			return Duration{}, validationErrorf("expiry unit %q must be a whole number, got %v", unit, raw)
		}
		*d.field(canonical) += n
	}
	return d, nil
}

func wholeNumber(raw any) (int, bool) {
	switch n := raw.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	v, err := value.From(raw)
	if err != nil {
		return 0, false
	}
	f, ok := v.AsNumber()
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
