package models

import "testing"

func TestParseTaskStatus(t *testing.T) {
	for _, raw := range []string{"open", "in_progress", "blocked", "deferred", "closed", "tombstone", "pinned", " Open ", "CLOSED"} {
		if _, err := ParseTaskStatus(raw); err != nil {
			t.Errorf("ParseTaskStatus(%q) rejected: %v", raw, err)
		}
	}
	for _, raw := range []string{"", "done", "in-progress", "openx"} {
		if status, err := ParseTaskStatus(raw); err == nil {
			t.Errorf("ParseTaskStatus(%q) = %q, want error", raw, status)
		}
	}
}

func TestParseTaskType(t *testing.T) {
	for _, raw := range []string{"bug", "feature", "task", "epic", "chore", "Bug"} {
		if _, err := ParseTaskType(raw); err != nil {
			t.Errorf("ParseTaskType(%q) rejected: %v", raw, err)
		}
	}
	if taskType, err := ParseTaskType("story"); err == nil {
		t.Errorf("ParseTaskType(story) = %q, want error", taskType)
	}
}

func TestValidPriority(t *testing.T) {
	for p := PriorityMin; p <= PriorityMax; p++ {
		if !ValidPriority(p) {
			t.Errorf("ValidPriority(%d) = false", p)
		}
	}
	if ValidPriority(PriorityMin-1) || ValidPriority(PriorityMax+1) {
		t.Error("out of range priority accepted")
	}
}

func TestBlockingStatusStrings(t *testing.T) {
	blocking := map[string]bool{}
	for _, s := range BlockingStatusStrings() {
		blocking[s] = true
	}
	for _, s := range []string{"open", "in_progress", "blocked", "deferred", "pinned"} {
		if !blocking[s] {
			t.Errorf("status %q should block dependents", s)
		}
	}
	if blocking["closed"] || blocking["tombstone"] {
		t.Error("terminal statuses must not block dependents")
	}
}

func TestStaleExcludedStatusStrings(t *testing.T) {
	excluded := map[string]bool{}
	for _, s := range StaleExcludedStatusStrings() {
		excluded[s] = true
	}
	if !excluded["closed"] || !excluded["tombstone"] {
		t.Errorf("closed and tombstone should be excluded from stale scans: %v", excluded)
	}
}

func TestParseGitObjectType(t *testing.T) {
	for _, raw := range []string{"commit", "tag", "branch", "path", "blob", "tree", "Commit"} {
		if _, err := ParseGitObjectType(raw); err != nil {
			t.Errorf("ParseGitObjectType(%q) rejected: %v", raw, err)
		}
	}
	for _, raw := range []string{"", "pull_request"} {
		if typ, err := ParseGitObjectType(raw); err == nil {
			t.Errorf("ParseGitObjectType(%q) = %q, want error", raw, typ)
		}
	}
}
