package notifications

import (
	"context"
	"errors"
	"testing"
)

func TestSubjectTitle(t *testing.T) {
	testCases := []struct {
		message string
		want    string
	}{
		{message: "New inspection created: Roof Check", want: "Roof Check"},
		{message: "New inspection created: Gate: North", want: "Gate: North"},
		{message: "no separator", want: ""},
		{message: "", want: ""},
	}
	for _, testCase := range testCases {
		if got := SubjectTitle(testCase.message); got != testCase.want {
			t.Fatalf("SubjectTitle(%q) = %q, want %q", testCase.message, got, testCase.want)
		}
	}
}

func TestNewWatchRules(t *testing.T) {
	rules, err := NewWatchRules([]string{" Morgan ", "", "Morgan", "Riley"}, testPrefix)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rules.Assignees(); len(got) != 2 || got[0] != "Morgan" || got[1] != "Riley" {
		t.Fatalf("unexpected assignees: %v", got)
	}
	if !rules.Watches("Morgan") || rules.Watches("morgan") {
		t.Fatalf("watch predicate must be exact equality")
	}
	if rules.Message("Roof Check") != "New inspection created: Roof Check" {
		t.Fatalf("unexpected message %q", rules.Message("Roof Check"))
	}

	if _, err := NewWatchRules(nil, testPrefix); !errors.Is(err, ErrNoWatchedAssignees) {
		t.Fatalf("expected ErrNoWatchedAssignees, got %v", err)
	}
	if _, err := NewWatchRules([]string{"Morgan"}, "  "); !errors.Is(err, ErrEmptyMessagePrefix) {
		t.Fatalf("expected ErrEmptyMessagePrefix, got %v", err)
	}
	if _, err := NewWatchRules([]string{"Morgan"}, "Inspection: created: "); err == nil {
		t.Fatalf("expected prefix with two separators to be rejected")
	}
	if _, err := NewWatchRules([]string{"Morgan"}, "New inspection"); err == nil {
		t.Fatalf("expected prefix without separator to be rejected")
	}
}

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	p.events = append(p.events, event)
	return p.err
}

func TestPublishersFanOutAndJoinErrors(t *testing.T) {
	failure := errors.New("broker down")
	first := &recordingPublisher{}
	second := &recordingPublisher{err: failure}
	publishers := Publishers{first, nil, second}

	err := publishers.Publish(context.Background(), Event{Kind: EventCreated})
	if !errors.Is(err, failure) {
		t.Fatalf("expected joined failure, got %v", err)
	}
	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected every publisher to receive the event")
	}
}
