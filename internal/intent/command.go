// Package intent maps free-text chat messages to task operations.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindAssign
	KindStatus
	KindMark
)

func (k Kind) String() string {
	switch k {
	case KindAssign:
		return "assign"
	case KindStatus:
		return "status"
	case KindMark:
		return "mark"
	default:
		return "unknown"
	}
}

// Command is the parsed form of a message. Only the fields relevant to Kind
// are populated.
type Command struct {
	Kind Kind

	// assign
	User    string
	Title   string
	DueText string

	// status
	ProjectID uint

	// mark
	TaskID uint
	Status string
}

type matcher struct {
	re    *regexp.Regexp
	build func(m []string, re *regexp.Regexp) (Command, bool)
}

// Matchers are tried in order and the first hit wins. Patterns search
// anywhere in the message.
var matchers = []matcher{
	{
		re: regexp.MustCompile(`(?i)assign\s+@(?P<user>\w+)\s+to\s+'?(?P<title>[^']+?)'?\s+due\s+(?P<due>.+)$`),
		build: func(m []string, re *regexp.Regexp) (Command, bool) {
			return Command{
				Kind:    KindAssign,
				User:    group(m, re, "user"),
				Title:   strings.TrimSpace(group(m, re, "title")),
				DueText: strings.TrimSpace(group(m, re, "due")),
			}, true
		},
	},
	{
		re: regexp.MustCompile(`(?i)status\s+project\s+(?P<pid>\d+)`),
		build: func(m []string, re *regexp.Regexp) (Command, bool) {
			id, ok := parseID(group(m, re, "pid"))
			return Command{Kind: KindStatus, ProjectID: id}, ok
		},
	},
	{
		re: regexp.MustCompile(`(?i)mark\s+task\s+(?P<tid>\d+)\s+(?P<status>done|blocked|in_progress)`),
		build: func(m []string, re *regexp.Regexp) (Command, bool) {
			id, ok := parseID(group(m, re, "tid"))
			return Command{Kind: KindMark, TaskID: id, Status: strings.ToLower(group(m, re, "status"))}, ok
		},
	},
}

// Parse classifies text. It never fails; unmatched input is KindUnknown.
func Parse(text string) Command {
	text = strings.TrimSpace(text)
	for _, mt := range matchers {
		m := mt.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if cmd, ok := mt.build(m, mt.re); ok {
			return cmd
		}
	}
	return Command{Kind: KindUnknown}
}

func group(m []string, re *regexp.Regexp, name string) string {
	if i := re.SubexpIndex(name); i >= 0 && i < len(m) {
		return m[i]
	}
	return ""
}

func parseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
