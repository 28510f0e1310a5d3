package intent

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionQuery  Action = "query"
	ActionNone   Action = "none"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Intent is the classifier's structured guess at what a chat message wants.
// It is transient: nothing here is persisted.
type Intent struct {
	Action     Action
	Confidence Confidence
	Title      string
	DueAt      *time.Time
	Priority   Priority
	Labels     []string
	// Context names the pattern family that matched (explicit, reminder,
	// action-verb, future-intent), kept for analytics and debugging.
	Context string
}

const minMessageLength = 5

var (
	smallTalkPattern = regexp.MustCompile(`(?i)^(?:hi|hiya|hello|hey|yo|thanks|thank you|thx|ok|okay|yes|no|nope|yep|sure|cool|nice|great|lol|haha|good morning|good night|bye|see ya)[.!?\s]*$`)

	explicitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:create|add|new|make)\s+(?:a\s+)?task:?\s+(.+)$`),
		regexp.MustCompile(`(?i)^task:\s*(.+)$`),
	}

	reminderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^remind me to\s+(.+)$`),
		regexp.MustCompile(`(?i)^todo:?\s+(.+)$`),
		regexp.MustCompile(`(?i)^don'?t forget to\s+(.+)$`),
	}

	futureIntentPattern = regexp.MustCompile(`(?i)^(?:we should|i should|we need to|need to|have to|gotta|gonna|going to|want to|let'?s)\s+(.+)$`)
)

// actionVerbs are the leading verbs that promote a message to a
// medium-confidence creation intent. The matched verb doubles as a label.
var actionVerbs = []string{
	"draft", "write", "build", "fix", "review", "update", "design",
	"implement", "test", "deploy", "refactor", "investigate", "research",
	"schedule", "email", "call", "prepare", "plan", "organize", "document",
}

var actionVerbPattern = regexp.MustCompile(`(?i)^(` + strings.Join(actionVerbs, "|") + `)\b[\s:]*(.+)$`)

// Classifier turns free chat text into an Intent via an ordered rule cascade.
// The first matching rule wins; there is no fallthrough once matched.
type Classifier struct {
	now func() time.Time
}

type classifyRule struct {
	name  string
	apply func(c *Classifier, text string) (Intent, bool)
}

var cascade = []classifyRule{
	{"trivial-rejection", (*Classifier).matchTrivial},
	{"explicit", (*Classifier).matchExplicit},
	{"reminder", (*Classifier).matchReminder},
	{"action-verb", (*Classifier).matchActionVerb},
	{"future-intent", (*Classifier).matchFutureIntent},
}

func NewClassifier(now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{now: now}
}

// Classify runs the cascade over one raw message. A none/high result is a
// valid terminal outcome, not an error.
func (c *Classifier) Classify(text string) Intent {
	trimmed := strings.TrimSpace(text)
	for _, rule := range cascade {
		if it, ok := rule.apply(c, trimmed); ok {
			return it
		}
	}
	return Intent{Action: ActionNone, Confidence: ConfidenceHigh}
}

func (c *Classifier) matchTrivial(text string) (Intent, bool) {
	if utf8.RuneCountInString(text) < minMessageLength || smallTalkPattern.MatchString(text) {
		return Intent{Action: ActionNone, Confidence: ConfidenceHigh}, true
	}
	return Intent{}, false
}

func (c *Classifier) matchExplicit(text string) (Intent, bool) {
	for _, p := range explicitPatterns {
		match := p.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		ex := Extract(match[1], c.now())
		return Intent{
			Action:     ActionCreate,
			Confidence: ConfidenceHigh,
			Title:      ex.Remainder,
			DueAt:      ex.DueAt,
			Priority:   ex.Priority,
			Context:    "explicit",
		}, true
	}
	return Intent{}, false
}

func (c *Classifier) matchReminder(text string) (Intent, bool) {
	for _, p := range reminderPatterns {
		match := p.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		ex := Extract(match[1], c.now())
		priority := ex.Priority
		if priority == "" {
			priority = PriorityHigh
		}
		return Intent{
			Action:     ActionCreate,
			Confidence: ConfidenceHigh,
			Title:      ex.Remainder,
			DueAt:      ex.DueAt,
			Priority:   priority,
			Labels:     []string{"reminder"},
			Context:    "reminder",
		}, true
	}
	return Intent{}, false
}

func (c *Classifier) matchActionVerb(text string) (Intent, bool) {
	match := actionVerbPattern.FindStringSubmatch(text)
	if match == nil {
		return Intent{}, false
	}
	verb := strings.ToLower(match[1])
	ex := Extract(text, c.now())
	return Intent{
		Action:     ActionCreate,
		Confidence: ConfidenceMedium,
		Title:      titleFirst(ex.Remainder),
		DueAt:      ex.DueAt,
		Priority:   ex.Priority,
		Labels:     []string{verb},
		Context:    "action-verb",
	}, true
}

func (c *Classifier) matchFutureIntent(text string) (Intent, bool) {
	match := futureIntentPattern.FindStringSubmatch(text)
	if match == nil {
		return Intent{}, false
	}
	ex := Extract(match[1], c.now())
	priority := ex.Priority
	if priority == "" {
		priority = PriorityLow
	}
	return Intent{
		Action:     ActionCreate,
		Confidence: ConfidenceLow,
		Title:      titleFirst(ex.Remainder),
		DueAt:      ex.DueAt,
		Priority:   priority,
		Labels:     []string{"idea"},
		Context:    "future-intent",
	}, true
}

// titleFirst upper-cases the first letter only. Applied to verb and
// future-intent titles; explicit and reminder titles keep the author's
// capitalization.
func titleFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
