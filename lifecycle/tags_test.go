package lifecycle

import (
	"testing"

	"coolbot/models"

	"github.com/stretchr/testify/assert"
)

var testTags = models.TagConfig{
	Cloud:           "t-cloud",
	Solved:          "t-solved",
	NotSolved:       "t-notsolved",
	NeedsDevReview:  "t-dev",
	Unanswered:      "t-unanswered",
	WaitingForReply: "t-waiting",
}

func TestTagTransitions(t *testing.T) {
	tags := NewTags(testTags)

	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{"opened adds unanswered", tags.Opened(nil), []string{"t-unanswered"}},
		{"opened keeps cloud", tags.Opened([]string{"t-cloud"}), []string{"t-cloud", "t-unanswered"}},
		{"opened drops a preset state", tags.Opened([]string{"t-solved"}), []string{"t-unanswered"}},
		{"reply swaps unanswered", tags.Replied([]string{"t-cloud", "t-unanswered"}), []string{"t-cloud", "t-notsolved"}},
		{"reply leaves not solved alone", tags.Replied([]string{"t-notsolved"}), []string{"t-notsolved"}},
		{"owner spoke last", tags.Waiting([]string{"t-notsolved"}, true), []string{"t-notsolved", "t-waiting"}},
		{"owner spoke last on unanswered", tags.Waiting([]string{"t-unanswered"}, true), []string{"t-unanswered"}},
		{"owner spoke last on solved", tags.Waiting([]string{"t-solved"}, true), []string{"t-solved"}},
		{"someone else spoke last", tags.Waiting([]string{"t-notsolved", "t-waiting"}, false), []string{"t-notsolved"}},
		{"solve keeps only cloud", tags.Solve([]string{"t-cloud", "t-notsolved", "t-waiting", "t-dev"}), []string{"t-cloud", "t-solved"}},
		{"solve without cloud", tags.Solve([]string{"t-unanswered"}), []string{"t-solved"}},
		{"unsolve", tags.Unsolve([]string{"t-cloud", "t-solved"}), []string{"t-cloud", "t-notsolved"}},
		{"dev review", tags.DevReview([]string{"t-notsolved", "t-waiting"}), []string{"t-dev"}},
		{"doc answer on unanswered", tags.DocAnswered([]string{"t-unanswered"}), []string{"t-notsolved"}},
		{"doc answer while waiting", tags.DocAnswered([]string{"t-notsolved", "t-waiting"}), []string{"t-notsolved"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestWaitingNeedsConfiguredTags(t *testing.T) {
	cfg := testTags
	cfg.WaitingForReply = ""
	tags := NewTags(cfg)
	assert.Equal(t, []string{"t-notsolved"}, tags.Waiting([]string{"t-notsolved"}, true))
}

func TestAtMostOneStateTag(t *testing.T) {
	tags := NewTags(testTags)
	states := []string{"", "t-unanswered", "t-notsolved", "t-solved"}
	extras := [][]string{nil, {"t-cloud"}, {"t-waiting"}, {"t-cloud", "t-waiting", "t-dev"}}

	transitions := map[string]func([]string) []string{
		"opened":       tags.Opened,
		"replied":      tags.Replied,
		"waiting":      func(a []string) []string { return tags.Waiting(a, true) },
		"not waiting":  func(a []string) []string { return tags.Waiting(a, false) },
		"solve":        tags.Solve,
		"unsolve":      tags.Unsolve,
		"dev review":   tags.DevReview,
		"doc answered": tags.DocAnswered,
	}

	for _, state := range states {
		for _, extra := range extras {
			applied := append([]string{}, extra...)
			if state != "" {
				applied = append(applied, state)
			}
			for name, next := range transitions {
				got := next(applied)
				n := 0
				for _, tag := range got {
					if tag == "t-unanswered" || tag == "t-notsolved" || tag == "t-solved" {
						n++
					}
				}
				assert.LessOrEqual(t, n, 1, "%s from %v gave %v", name, applied, got)
			}
		}
	}
}

func TestSameSet(t *testing.T) {
	assert.True(t, SameSet([]string{"a", "b"}, []string{"b", "a"}))
	assert.False(t, SameSet([]string{"a"}, []string{"a", "b"}))
	assert.True(t, SameSet(nil, []string{}))
}
