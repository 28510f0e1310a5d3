package intent

import (
	"strings"
	"testing"
	"time"
)

func testClassifier() *Classifier {
	return NewClassifier(func() time.Time { return testNow })
}

func TestClassify_ShortMessages(t *testing.T) {
	c := testClassifier()
	for _, text := range []string{"", "ok", "hm", "yes!"} {
		it := c.Classify(text)
		if it.Action != ActionNone || it.Confidence != ConfidenceHigh {
			t.Fatalf("Classify(%q) = %+v, want none/high", text, it)
		}
	}
}

func TestClassify_SmallTalk(t *testing.T) {
	c := testClassifier()
	for _, text := range []string{"hello!", "thank you", "good morning", "okay then"} {
		it := c.Classify(text)
		if it.Action != ActionNone {
			t.Fatalf("Classify(%q).Action = %q, want none", text, it.Action)
		}
	}
}

func TestClassify_ExplicitCreate(t *testing.T) {
	c := testClassifier()
	it := c.Classify("create task: Ship the Billing Fix tomorrow")
	if it.Action != ActionCreate || it.Confidence != ConfidenceHigh || it.Context != "explicit" {
		t.Fatalf("unexpected intent: %+v", it)
	}
	// Explicit titles preserve user capitalization.
	if it.Title != "Ship the Billing Fix" {
		t.Fatalf("title = %q", it.Title)
	}
	if it.DueAt == nil || it.DueAt.Day() != 3 {
		t.Fatalf("due = %v", it.DueAt)
	}
}

func TestClassify_BareTaskPrefix(t *testing.T) {
	c := testClassifier()
	it := c.Classify("task: wire the webhook retries")
	if it.Action != ActionCreate || it.Context != "explicit" {
		t.Fatalf("unexpected intent: %+v", it)
	}
	if it.Title != "wire the webhook retries" {
		t.Fatalf("title = %q", it.Title)
	}
}

func TestClassify_ReminderScenario(t *testing.T) {
	// testNow is a Monday. "remind me to call John tomorrow" must produce
	// title "call John", reminder-default priority high, due Tuesday 09:00.
	c := testClassifier()
	it := c.Classify("remind me to call John tomorrow")
	if it.Action != ActionCreate || it.Confidence != ConfidenceHigh || it.Context != "reminder" {
		t.Fatalf("unexpected intent: %+v", it)
	}
	if it.Title != "call John" {
		t.Fatalf("title = %q, want %q", it.Title, "call John")
	}
	if it.Priority != PriorityHigh {
		t.Fatalf("priority = %q, want high", it.Priority)
	}
	want := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	if it.DueAt == nil || !it.DueAt.Equal(want) {
		t.Fatalf("due = %v, want %s", it.DueAt, want.Format(time.RFC3339))
	}
	if len(it.Labels) != 1 || it.Labels[0] != "reminder" {
		t.Fatalf("labels = %v", it.Labels)
	}
}

func TestClassify_ReminderKeepsExplicitPriority(t *testing.T) {
	c := testClassifier()
	it := c.Classify("remind me to rotate the keys eventually")
	if it.Priority != PriorityLow {
		t.Fatalf("priority = %q, want low (explicit token beats reminder default)", it.Priority)
	}
}

func TestClassify_ActionVerb(t *testing.T) {
	c := testClassifier()
	it := c.Classify("fix the login redirect by friday")
	if it.Action != ActionCreate || it.Confidence != ConfidenceMedium || it.Context != "action-verb" {
		t.Fatalf("unexpected intent: %+v", it)
	}
	if it.Title != "Fix the login redirect" {
		t.Fatalf("title = %q", it.Title)
	}
	if len(it.Labels) != 1 || it.Labels[0] != "fix" {
		t.Fatalf("labels = %v", it.Labels)
	}
	if it.DueAt == nil || it.DueAt.Weekday() != time.Friday {
		t.Fatalf("due = %v", it.DueAt)
	}
}

func TestClassify_FutureIntent(t *testing.T) {
	c := testClassifier()
	it := c.Classify("we should fix the login bug eventually")
	if it.Action != ActionCreate || it.Confidence != ConfidenceLow || it.Context != "future-intent" {
		t.Fatalf("unexpected intent: %+v", it)
	}
	if it.Title != "Fix the login bug" {
		t.Fatalf("title = %q, want %q", it.Title, "Fix the login bug")
	}
	if it.Priority != PriorityLow {
		t.Fatalf("priority = %q, want low", it.Priority)
	}
	if len(it.Labels) != 1 || it.Labels[0] != "idea" {
		t.Fatalf("labels = %v", it.Labels)
	}
}

func TestClassify_NoMatch(t *testing.T) {
	c := testClassifier()
	it := c.Classify("the deploy went out around noon")
	if it.Action != ActionNone || it.Confidence != ConfidenceHigh {
		t.Fatalf("unexpected intent: %+v", it)
	}
}

func TestFormatConfirmation(t *testing.T) {
	c := testClassifier()
	it := c.Classify("remind me to call John tomorrow")
	got := FormatConfirmation(it)
	if got == "" || got == "Noted." {
		t.Fatalf("unexpected confirmation: %q", got)
	}
	for _, want := range []string{"call John", "priority high", "due"} {
		if !strings.Contains(got, want) {
			t.Fatalf("confirmation %q missing %q", got, want)
		}
	}
}
