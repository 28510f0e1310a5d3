// Package command implements the dashboard command-bar parser: a stricter,
// near-imperative grammar parallel to the free-chat intent classifier.
package command

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindCreate   Kind = "create"
	KindMove     Kind = "move"
	KindComplete Kind = "complete"
	KindPriority Kind = "priority"
	KindDue      Kind = "due"
	KindArchive  Kind = "archive"
	KindQuery    Kind = "query"
	KindList     Kind = "list"
	KindUnknown  Kind = "unknown"
)

// Command is one parsed command-bar input. TaskRef is a title or fragment to
// be resolved against the board; Params carries kind-specific values
// (column, priority, due, filter).
type Command struct {
	Kind    Kind
	TaskRef string
	Params  map[string]string
}

// commandVerbs is the fixed prefix list behind LooksLikeCommand. Typed text
// starting with one of these is routed here instead of the chat classifier.
var commandVerbs = []string{
	"move", "set", "show", "list", "create", "add", "complete", "finish",
	"mark", "archive", "done", "prioritize",
}

// LooksLikeCommand is a cheap prefix check, not a full parse: it decides
// routing, Parse decides meaning.
func LooksLikeCommand(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, verb := range commandVerbs {
		if text == verb || strings.HasPrefix(text, verb+" ") {
			return true
		}
	}
	return false
}

var (
	movePattern     = regexp.MustCompile(`(?i)^move\s+['"]?(.+?)['"]?\s+to\s+(.+)$`)
	completePattern = regexp.MustCompile(`(?i)^(?:complete|finish|mark\s+(?:as\s+)?done|done)\s+['"]?(.+?)['"]?$`)
	priorityPattern = regexp.MustCompile(`(?i)^set\s+priority\s+(?:of\s+|for\s+)?['"]?(.+?)['"]?\s+to\s+(critical|high|medium|low|p[1-4])$`)
	duePattern      = regexp.MustCompile(`(?i)^set\s+due(?:\s+date)?\s+(?:of\s+|for\s+)?['"]?(.+?)['"]?\s+to\s+(.+)$`)
	archivePattern  = regexp.MustCompile(`(?i)^archive\s+['"]?(.+?)['"]?$`)
	listPattern     = regexp.MustCompile(`(?i)^list\s*(.*)$`)
	queryPattern    = regexp.MustCompile(`(?i)^show\s+(?:me\s+)?(?:all\s+)?(.*)$`)
	createPattern   = regexp.MustCompile(`(?i)^(?:create|add)\s+(?:task:?\s+)?(.+)$`)
)

// Parse classifies one command string. Patterns are tried in a fixed order,
// first match wins; anything unmatched is KindUnknown (a valid terminal
// outcome, not an error).
func Parse(text string) Command {
	text = strings.TrimSpace(text)
	if text == "" {
		return Command{Kind: KindUnknown, Params: map[string]string{}}
	}

	if m := movePattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindMove, TaskRef: strings.TrimSpace(m[1]), Params: map[string]string{"column": strings.TrimSpace(m[2])}}
	}
	if m := priorityPattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindPriority, TaskRef: strings.TrimSpace(m[1]), Params: map[string]string{"priority": normalizePriority(m[2])}}
	}
	if m := duePattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindDue, TaskRef: strings.TrimSpace(m[1]), Params: map[string]string{"due": strings.TrimSpace(m[2])}}
	}
	if m := completePattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindComplete, TaskRef: strings.TrimSpace(m[1]), Params: map[string]string{}}
	}
	if m := archivePattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindArchive, TaskRef: strings.TrimSpace(m[1]), Params: map[string]string{}}
	}
	if m := listPattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindList, Params: filterParams(m[1])}
	}
	if m := queryPattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindQuery, Params: filterParams(m[1])}
	}
	if m := createPattern.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindCreate, TaskRef: strings.TrimSpace(m[1]), Params: map[string]string{}}
	}
	return Command{Kind: KindUnknown, Params: map[string]string{}}
}

var priorityFilterPattern = regexp.MustCompile(`(?i)\b(critical|high|medium|low|p[1-4])\b`)

func filterParams(raw string) map[string]string {
	params := map[string]string{}
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "tasks"))
	if raw == "" {
		return params
	}
	if m := priorityFilterPattern.FindStringSubmatch(raw); m != nil {
		params["priority"] = normalizePriority(m[1])
		raw = strings.TrimSpace(priorityFilterPattern.ReplaceAllString(raw, ""))
	}
	if raw != "" {
		if cat, ok := ResolveColumnCategory(raw); ok {
			params["column"] = string(cat)
		} else {
			params["filter"] = raw
		}
	}
	return params
}

// P-levels map onto the four ordinal tiers, p1 highest.
func normalizePriority(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "p1":
		return "critical"
	case "p2":
		return "high"
	case "p3":
		return "medium"
	case "p4":
		return "low"
	default:
		return strings.ToLower(strings.TrimSpace(raw))
	}
}
