// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// Key is a canonical 10-digit phone key. It is the sole join key between
// activity records and leads. Two numbers that differ only by formatting
// or a US country-code prefix produce the same Key.
type Key string

// Normalize canonicalizes an arbitrary phone representation to a Key.
// All non-digit characters are stripped; an 11-digit string with a
// leading 1 drops the country code. Anything that does not end up as
// exactly 10 digits is reported as invalid (ok=false), never as an
// empty Key usable for matching.
func Normalize(raw string) (Key, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", false
	}
	return Key(digits), true
}

// NormalizeAll normalizes every value and returns the valid keys,
// deduplicated, in first-seen order.
func NormalizeAll(values ...string) []Key {
	var keys []Key
	seen := make(map[Key]struct{}, len(values))
	for _, v := range values {
		key, ok := Normalize(v)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Display formats a Key for human-readable output, e.g. "(555) 867-5309".
// If the key cannot be parsed it is returned as-is; Display output always
// normalizes back to the same Key.
func Display(key Key) string {
	number, err := phonenumbers.Parse("+1"+string(key), defaultRegion)
	if err != nil {
		return string(key)
	}
	return phonenumbers.Format(number, phonenumbers.NATIONAL)
}
