// Package dataset finds research-data dataset identifiers in free text.
//
// Two naming conventions are recognised. The current one is the letter d
// followed by six digits (d123456). The legacy one is ds, three digits, a dot
// and one digit (ds123.4), which maps onto the current form by zero-padding
// the trailing digit: ds123.4 -> d123004.
package dataset

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when a string is not a canonical dataset id.
var ErrInvalidID = errors.New("invalid dataset id")

// ID is a canonical dataset identifier: lowercase d followed by six digits.
type ID string

func (id ID) String() string { return string(id) }

var canonicalRe = regexp.MustCompile(`^d\d{6}$`)

// Valid reports whether id is in canonical form.
func (id ID) Valid() bool {
	return canonicalRe.MatchString(string(id))
}

// Parse validates s as a canonical dataset id. Surrounding whitespace and
// upper case are tolerated; anything else is rejected.
func Parse(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q (want d followed by 6 digits)", ErrInvalidID, s)
	}
	return id, nil
}

type pattern struct {
	re        *regexp.Regexp
	normalize func(match []string) (ID, bool)
}

// patterns are tried in order; the first one that matches anywhere wins.
var patterns = []pattern{
	{
		re:        regexp.MustCompile(`(?i)\b(d\d{6})\b`),
		normalize: func(m []string) (ID, bool) {
			return ID(strings.ToLower(m[1])), true
		},
	},
	{
		re:        regexp.MustCompile(`(?i)\bds(\d{3})\.(\d)\b`),
		normalize: func(m []string) (ID, bool) {
			return fromLegacy(m[1], m[2])
		},
	},
}

// fromLegacy converts the numeric groups of a legacy id into canonical form.
func fromLegacy(major, minor string) (ID, bool) {
	if _, err := strconv.Atoi(major); err != nil {
		return "", false
	}
	n, err := strconv.Atoi(minor)
	if err != nil {
		return "", false
	}
	return ID(fmt.Sprintf("d%s%03d", major, n)), true
}

// Extract searches the given text fields for a dataset identifier.
//
// Field values are joined in field-name order, one per line, so the result
// does not depend on map iteration order. Finding nothing is the common case
// and is reported with ok == false, never as an error.
func Extract(fields map[string]string) (id ID, ok bool) {
	return ExtractText(joinFields(fields))
}

// ExtractText is Extract over a single block of text.
func ExtractText(text string) (ID, bool) {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if id, ok := p.normalize(m); ok {
			return id, true
		}
	}
	return "", false
}

func joinFields(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(fields[name])
		b.WriteString("\n")
	}
	return b.String()
}
