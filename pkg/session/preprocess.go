package session

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyDocument is returned when nothing remains after preprocessing.
var ErrEmptyDocument = errors.New("session: empty document")

// Keys whose values are free text typed by users. The simulator writes them
// unquoted, so a name such as "Bob: the builder" breaks a YAML parser.
var freeText = regexp.MustCompile(`(?m)^([ \t]*-?[ \t]*(?:UserName|TeamName|AbbrevName|Initials|DriverSetupName|CarDesignStr|HelmetDesignStr|SuitDesignStr|ClubName|DivisionName|FrequencyName): )(.*?)[ \t\r]*$`)

// Preprocess cuts raw at the first NUL, drops control characters other than
// newline, carriage return and tab, and quotes free-text values.
func Preprocess(raw string) (string, error) {
	if i := strings.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, raw)
	if strings.TrimSpace(clean) == "" {
		return "", ErrEmptyDocument
	}
	return freeText.ReplaceAllStringFunc(clean, quoteValue), nil
}

func quoteValue(line string) string {
	m := freeText.FindStringSubmatch(line)
	prefix, val := m[1], m[2]
	if val == "" || strings.HasPrefix(val, "'") || strings.HasPrefix(val, `"`) {
		return line
	}
	return prefix + "'" + strings.ReplaceAll(val, "'", "''") + "'"
}
