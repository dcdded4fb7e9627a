package radario

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// caster converts a raw JSON value. ok=false means "treat as absent".
type caster func(v any) (any, bool)

// moscow is used for Radario timestamps that carry no offset.
var moscow = time.FixedZone("MSK", 3*60*60)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
}

func asString(v any) (any, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case json.Number:
		return val.String(), true
	default:
		return nil, false
	}
}

// asIdentifier keeps integer ids verbatim and renders float literals without
// exponent or a trailing ".0".
func asIdentifier(v any) (any, bool) {
	switch val := v.(type) {
	case json.Number:
		if !strings.ContainsAny(val.String(), ".eE") {
			return val.String(), true
		}
		if n, err := val.Int64(); err == nil {
			return strconv.FormatInt(n, 10), true
		}
		f, err := val.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return val.String(), true
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return asString(v)
	}
}

func asEmail(v any) (any, bool) {
	s, ok := asString(v)
	if !ok {
		return nil, false
	}
	email := strings.ToLower(s.(string))
	return email, strings.Contains(email, "@")
}

func asInt(v any) (any, bool) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n), true
		}
		if f, err := val.Float64(); err == nil {
			return int(f), true
		}
	case float64:
		return int(val), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n, true
		}
	}
	return nil, false
}

func asInt64(v any) (any, bool) {
	n, ok := asInt(v)
	if !ok {
		return nil, false
	}
	return int64(n.(int)), true
}

// asMinorAmount converts a number or numeric string in major units to
// minor units, rounding half away from zero.
func asMinorAmount(v any) (any, bool) {
	var raw string
	switch val := v.(type) {
	case json.Number:
		raw = val.String()
	case float64:
		raw = strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		raw = val
	default:
		return nil, false
	}

	minor, ok := parseMinor(raw)
	if !ok {
		return nil, false
	}
	return minor, true
}

func parseMinor(raw string) (int64, bool) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '₽' {
			return -1
		}
		return r
	}, raw)
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, false
	}

	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return int64(math.Round(f * 100)), true
	}

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	for len(frac) < 3 {
		frac += "0"
	}

	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, false
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false
	}
	cents := int64(frac[0]-'0')*10 + int64(frac[1]-'0')

	minor := units*100 + cents
	if frac[2] >= '5' {
		minor++
	}
	if negative {
		minor = -minor
	}
	return minor, true
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func asTime(v any) (any, bool) {
	switch val := v.(type) {
	case json.Number:
		n, err := val.Int64()
		if err != nil || n <= 0 {
			return nil, false
		}
		return unixTime(n), true
	case float64:
		return unixTime(int64(val)), val > 0
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, moscow); err == nil {
				return t, true
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			return unixTime(n), true
		}
	}
	return nil, false
}

// unixTime accepts seconds or milliseconds.
func unixTime(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

func asPresent(v any) (any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, len(val) > 0
	case string:
		return val, strings.TrimSpace(val) != ""
	default:
		return val, v != nil
	}
}

// asCustomDataName reads a buyer name out of the CustomData field, which
// Radario delivers either as an object or as a JSON encoded string.
func asCustomDataName(v any) (any, bool) {
	var data map[string]any
	switch val := v.(type) {
	case map[string]any:
		data = val
	case string:
		decoder := json.NewDecoder(strings.NewReader(val))
		decoder.UseNumber()
		if err := decoder.Decode(&data); err != nil {
			return nil, false
		}
	default:
		return nil, false
	}

	for _, key := range []string{"Name", "FullName", "Fio", "ФИО"} {
		if raw, ok := lookup(data, key); ok {
			if name, ok := asString(raw); ok {
				return name, true
			}
		}
	}
	return nil, false
}

// nameFromEmail capitalizes the local part of an address.
func nameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.TrimSpace(local)
	if local == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(local)
	return string(unicode.ToUpper(r)) + local[size:]
}
