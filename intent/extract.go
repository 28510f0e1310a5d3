package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Priority tiers, highest first. The empty string means "unset"; callers are
// expected to apply their own default.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Fixed hours applied by the date rules.
const (
	defaultDueHour  = 9  // tomorrow / next week / in N days / weekday
	endOfDayDueHour = 17 // today
)

// Extraction is the result of stripping date/priority tokens out of free text.
// Nil DueAt / empty Priority mean no token matched; that is never an error.
type Extraction struct {
	Remainder string
	DueAt     *time.Time
	Priority  Priority
}

type dateRule struct {
	pattern *regexp.Regexp
	resolve func(match []string, now time.Time) time.Time
}

// Checked in fixed order; only the first matching rule applies.
var dateRules = []dateRule{
	{
		pattern: regexp.MustCompile(`(?i)\btomorrow\b`),
		resolve: func(_ []string, now time.Time) time.Time {
			return dayAt(now, 1, defaultDueHour)
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\btoday\b`),
		resolve: func(_ []string, now time.Time) time.Time {
			return dayAt(now, 0, endOfDayDueHour)
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\bnext week\b`),
		resolve: func(_ []string, now time.Time) time.Time {
			return dayAt(now, 7, defaultDueHour)
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\bin (\d+) days?\b`),
		resolve: func(match []string, now time.Time) time.Time {
			n, _ := strconv.Atoi(match[1])
			return dayAt(now, n, defaultDueHour)
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(?:by|next) (monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		resolve: func(match []string, now time.Time) time.Time {
			target := weekdays[strings.ToLower(match[1])]
			delta := (int(target) - int(now.Weekday()) + 7) % 7
			// Never today: "by monday" said on a Monday means next Monday.
			if delta == 0 {
				delta = 7
			}
			return dayAt(now, delta, defaultDueHour)
		},
	},
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

type priorityRule struct {
	pattern *regexp.Regexp
	tier    Priority
}

// Checked in fixed order; only the first matching class applies. Absence of a
// match leaves the tier unset.
var priorityRules = []priorityRule{
	{regexp.MustCompile(`(?i)\b(?:urgent|critical|asap)\b`), PriorityCritical},
	{regexp.MustCompile(`(?i)\b(?:high[- ]priority|important|high)\b`), PriorityHigh},
	{regexp.MustCompile(`(?i)\b(?:low[- ]priority|eventually|someday|low)\b`), PriorityLow},
}

// Extract pulls the first recognized due-date token and the first recognized
// priority token out of text, returning the remainder with both removed.
// Pure: now is the only clock input.
func Extract(text string, now time.Time) Extraction {
	out := Extraction{Remainder: text}

	for _, rule := range dateRules {
		match := rule.pattern.FindStringSubmatch(out.Remainder)
		if match == nil {
			continue
		}
		due := rule.resolve(match, now)
		out.DueAt = &due
		out.Remainder = stripFirst(out.Remainder, rule.pattern)
		break
	}

	for _, rule := range priorityRules {
		if !rule.pattern.MatchString(out.Remainder) {
			continue
		}
		out.Priority = rule.tier
		out.Remainder = stripFirst(out.Remainder, rule.pattern)
		break
	}

	out.Remainder = CleanTitle(out.Remainder)
	return out
}

func dayAt(now time.Time, daysAhead int, hour int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+daysAhead, hour, 0, 0, 0, now.Location())
}

var whitespacePattern = regexp.MustCompile(`\s+`)

func stripFirst(text string, pattern *regexp.Regexp) string {
	loc := pattern.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + " " + text[loc[1]:]
}

// CleanTitle collapses whitespace and trims residual punctuation left behind
// by token stripping ("call John tomorrow" -> "call John").
func CleanTitle(s string) string {
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.Trim(s, " \t.,!?;:-")
}
