package store

import (
	"context"
	"testing"
	"time"

	"github.com/untoldecay/grns/internal/models"
)

func TestUpsertGitRepoIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertGitRepo(ctx, &models.GitRepo{Slug: "github.com/acme/widgets"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated repo id")
	}

	second, err := s.UpsertGitRepo(ctx, &models.GitRepo{Slug: "github.com/acme/widgets"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("same slug produced two repo rows: %s vs %s", first.ID, second.ID)
	}

	got, err := s.GetGitRepoBySlug(ctx, "github.com/acme/widgets")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Errorf("lookup mismatch: %+v", got)
	}
}

func TestCreateTaskGitRefUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "gr-a001", "task")

	repo, err := s.UpsertGitRepo(ctx, &models.GitRepo{Slug: "github.com/acme/widgets"})
	if err != nil {
		t.Fatal(err)
	}

	ref := &models.TaskGitRef{
		ID:          "gf-0001",
		TaskID:      "gr-a001",
		RepoID:      repo.ID,
		Repo:        repo.Slug,
		Relation:    "fix_commit",
		ObjectType:  string(models.GitObjectTypeCommit),
		ObjectValue: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.CreateTaskGitRef(ctx, ref); err != nil {
		t.Fatalf("create ref: %v", err)
	}

	dup := *ref
	dup.ID = "gf-0002"
	err = s.CreateTaskGitRef(ctx, &dup)
	if err == nil || !IsUniqueConstraint(err) {
		t.Fatalf("expected unique constraint on duplicate ref, got %v", err)
	}

	refs, err := s.ListTaskGitRefs(ctx, "gr-a001")
	if err != nil {
		t.Fatalf("list refs: %v", err)
	}
	if len(refs) != 1 {
		t.Errorf("expected 1 ref, got %d", len(refs))
	}
}

func TestDeleteTaskGitRef(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "gr-a001", "task")

	repo, _ := s.UpsertGitRepo(ctx, &models.GitRepo{Slug: "github.com/acme/widgets"})
	ref := &models.TaskGitRef{
		ID:          "gf-0001",
		TaskID:      "gr-a001",
		RepoID:      repo.ID,
		Repo:        repo.Slug,
		Relation:    "related",
		ObjectType:  string(models.GitObjectTypePath),
		ObjectValue: "docs/design.md",
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.CreateTaskGitRef(ctx, ref); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteTaskGitRef(ctx, "gf-0001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := s.GetTaskGitRef(ctx, "gf-0001")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("ref survived delete")
	}
}

func TestCloseTasksWithGitRefs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "gr-a001", "one")
	mustCreate(t, s, "gr-a002", "two")

	hash := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	refs := []CloseTaskGitRefInput{
		{TaskID: "gr-a001", RepoSlug: "github.com/acme/widgets", Relation: "closed_by", ObjectType: "commit", ObjectValue: hash, ResolvedCommit: hash},
		{TaskID: "gr-a002", RepoSlug: "github.com/acme/widgets", Relation: "closed_by", ObjectType: "commit", ObjectValue: hash, ResolvedCommit: hash},
	}
	created, err := s.CloseTasksWithGitRefs(ctx, []string{"gr-a001", "gr-a002"}, time.Now().UTC(), refs)
	if err != nil {
		t.Fatalf("close with refs: %v", err)
	}
	if created != 2 {
		t.Errorf("expected 2 annotations, got %d", created)
	}

	for _, id := range []string{"gr-a001", "gr-a002"} {
		task, _ := s.GetTask(ctx, id)
		if task.Status != string(models.StatusClosed) {
			t.Errorf("%s not closed", id)
		}
		taskRefs, _ := s.ListTaskGitRefs(ctx, id)
		if len(taskRefs) != 1 || taskRefs[0].Relation != "closed_by" {
			t.Errorf("%s annotation missing: %+v", id, taskRefs)
		}
	}

	// Re-closing with the same commit skips the duplicate annotation.
	if err := s.ReopenTasks(ctx, []string{"gr-a001"}, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	created, err = s.CloseTasksWithGitRefs(ctx, []string{"gr-a001"}, time.Now().UTC(), refs[:1])
	if err != nil {
		t.Fatalf("second close: %v", err)
	}
	if created != 0 {
		t.Errorf("duplicate annotation counted: %d", created)
	}
	taskRefs, _ := s.ListTaskGitRefs(ctx, "gr-a001")
	if len(taskRefs) != 1 {
		t.Errorf("duplicate annotation written: %d refs", len(taskRefs))
	}
}

func TestCloseTasksWithGitRefsMissingTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, "gr-a001", "one")

	hash := "cccccccccccccccccccccccccccccccccccccccc"
	_, err := s.CloseTasksWithGitRefs(ctx, []string{"gr-a001", "gr-zzzz"}, time.Now().UTC(), []CloseTaskGitRefInput{
		{TaskID: "gr-a001", RepoSlug: "github.com/acme/widgets", Relation: "closed_by", ObjectType: "commit", ObjectValue: hash, ResolvedCommit: hash},
	})
	if err == nil {
		t.Fatal("expected error for missing task")
	}

	task, _ := s.GetTask(ctx, "gr-a001")
	if task.Status != string(models.StatusOpen) {
		t.Error("task closed despite failed batch")
	}
	taskRefs, _ := s.ListTaskGitRefs(ctx, "gr-a001")
	if len(taskRefs) != 0 {
		t.Error("annotation written despite failed batch")
	}
}

func TestGenerateID(t *testing.T) {
	id, err := GenerateID("gr", func(string) (bool, error) { return false, nil })
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(id) != 7 || id[:3] != "gr-" {
		t.Errorf("unexpected id shape: %q", id)
	}
	for _, r := range id[3:] {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z') {
			t.Errorf("non base36 rune %q in %q", r, id)
		}
	}

	_, err = GenerateID("gr", func(string) (bool, error) { return true, nil })
	if err == nil {
		t.Error("expected exhaustion error when every id collides")
	}
}
