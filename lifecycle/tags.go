package lifecycle

import (
	"slices"

	"coolbot/models"
)

// Tags computes thread tag sets. Every transition returns the complete new
// set so that it can be applied with a single edit. Tags that are not
// configured are never added.
type Tags struct {
	cfg models.TagConfig
}

// NewTags wraps the configured tag ids.
func NewTags(cfg models.TagConfig) Tags {
	return Tags{cfg: cfg}
}

// Config returns the configured tag ids.
func (t Tags) Config() models.TagConfig { return t.cfg }

func has(tags []string, id string) bool {
	return id != "" && slices.Contains(tags, id)
}

func with(tags []string, id string) []string {
	if id == "" || slices.Contains(tags, id) {
		return tags
	}
	return append(slices.Clone(tags), id)
}

func without(tags []string, ids ...string) []string {
	return slices.DeleteFunc(slices.Clone(tags), func(tag string) bool {
		return tag != "" && slices.Contains(ids, tag)
	})
}

// SameSet reports whether a and b contain the same tags.
func SameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, tag := range a {
		if !slices.Contains(b, tag) {
			return false
		}
	}
	return true
}

// IsSolved reports whether the solved tag is applied.
func (t Tags) IsSolved(applied []string) bool { return has(applied, t.cfg.Solved) }

// IsUnanswered reports whether the unanswered tag is applied.
func (t Tags) IsUnanswered(applied []string) bool { return has(applied, t.cfg.Unanswered) }

// HasCloud reports whether the cloud-provider tag is applied.
func (t Tags) HasCloud(applied []string) bool { return has(applied, t.cfg.Cloud) }

// NeedsDevReview reports whether the dev review tag is applied.
func (t Tags) NeedsDevReview(applied []string) bool { return has(applied, t.cfg.NeedsDevReview) }

// base keeps the cloud tag, the only tag that survives a full replacement.
func (t Tags) base(applied []string) []string {
	if t.HasCloud(applied) {
		return []string{t.cfg.Cloud}
	}
	return []string{}
}

// Opened is the tag set of a freshly opened post.
func (t Tags) Opened(applied []string) []string {
	if t.cfg.Unanswered == "" {
		return applied
	}
	return with(without(applied, t.cfg.NotSolved, t.cfg.Solved), t.cfg.Unanswered)
}

// Replied swaps unanswered for not_solved once someone other than the owner
// has answered.
func (t Tags) Replied(applied []string) []string {
	if !t.IsUnanswered(applied) {
		return applied
	}
	return with(without(applied, t.cfg.Unanswered), t.cfg.NotSolved)
}

// Waiting recomputes the waiting_for_reply indicator from the author of the
// latest message.
func (t Tags) Waiting(applied []string, lastByOwner bool) []string {
	if t.cfg.WaitingForReply == "" || t.cfg.Unanswered == "" {
		return applied
	}
	if lastByOwner && !t.IsUnanswered(applied) && !t.IsSolved(applied) {
		return with(applied, t.cfg.WaitingForReply)
	}
	return without(applied, t.cfg.WaitingForReply)
}

// Solve is [cloud?, solved].
func (t Tags) Solve(applied []string) []string {
	return with(t.base(applied), t.cfg.Solved)
}

// Unsolve is [cloud?, not_solved].
func (t Tags) Unsolve(applied []string) []string {
	return with(t.base(applied), t.cfg.NotSolved)
}

// DevReview is [cloud?, needs_dev_review].
func (t Tags) DevReview(applied []string) []string {
	return with(t.base(applied), t.cfg.NeedsDevReview)
}

// DocAnswered clears the waiting indicators after a documentation answer.
// A post that was unanswered moves to not_solved.
func (t Tags) DocAnswered(applied []string) []string {
	next := without(applied, t.cfg.WaitingForReply, t.cfg.Unanswered)
	if t.IsUnanswered(applied) {
		next = with(next, t.cfg.NotSolved)
	}
	return next
}
