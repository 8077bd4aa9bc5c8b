// Package dateparse turns chat due-date text such as "tomorrow 5pm" or
// "2025-10-05 17:00" into an instant.
package dateparse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/jonboulle/clockwork"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var ErrUnparseable = errors.New("unparseable date")

// Absolute layouts tried before natural language, in order.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// Text shaped like a numeric date that no layout accepted is rejected
// outright, so "2025-13-45" never degrades into a time of day.
var numericDate = regexp.MustCompile(`^\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}`)

type Parser struct {
	loc   *time.Location
	clock clockwork.Clock
	w     *when.Parser
}

// New returns a Parser that resolves relative and zone-less text in loc.
func New(loc *time.Location, clock clockwork.Clock) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	return &Parser{loc: loc, clock: clock, w: w}
}

func (p *Parser) Location() *time.Location {
	return p.loc
}

// Parse returns the instant described by text. Relative phrases are
// resolved against the parser clock.
func (p *Parser) Parse(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, ErrUnparseable
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, p.loc); err == nil {
			return t, nil
		}
	}

	if numericDate.MatchString(text) {
		return time.Time{}, ErrUnparseable
	}

	base := p.clock.Now().In(p.loc)
	result, err := p.w.Parse(text, base)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if result == nil || !coversInput(text, result.Index, len(result.Text)) {
		return time.Time{}, ErrUnparseable
	}

	return result.Time.Truncate(time.Minute), nil
}

// coversInput reports whether the matched span accounts for all of text,
// ignoring surrounding blanks and punctuation.
func coversInput(text string, index, length int) bool {
	if index < 0 || index+length > len(text) {
		return false
	}
	filler := func(r rune) bool { return unicode.IsSpace(r) || unicode.IsPunct(r) }
	return strings.TrimFunc(text[:index], filler) == "" &&
		strings.TrimFunc(text[index+length:], filler) == ""
}
