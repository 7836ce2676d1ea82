package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/untoldecay/grns/internal/api"
	"github.com/untoldecay/grns/internal/models"
	"github.com/untoldecay/grns/internal/store"
)

// Import policy knobs.
const (
	dedupeSkip      = "skip"
	dedupeOverwrite = "overwrite"
	dedupeError     = "error"

	orphanStrict  = "strict"
	orphanLenient = "lenient"

	importChunkSize = 500
)

type importOptions struct {
	DryRun         bool
	Dedupe         string
	OrphanHandling string
	Atomic         bool
}

func parseImportOptions(dryRun bool, dedupe, orphanHandling string, atomic bool) (importOptions, *apiError) {
	opts := importOptions{DryRun: dryRun, Atomic: atomic}

	switch strings.ToLower(strings.TrimSpace(dedupe)) {
	case "", dedupeSkip:
		opts.Dedupe = dedupeSkip
	case dedupeOverwrite:
		opts.Dedupe = dedupeOverwrite
	case dedupeError:
		opts.Dedupe = dedupeError
	default:
		return opts, badRequestCode(ErrCodeInvalidImportMode, "invalid dedupe mode %q", dedupe)
	}

	switch strings.ToLower(strings.TrimSpace(orphanHandling)) {
	case "", orphanLenient:
		opts.OrphanHandling = orphanLenient
	case orphanStrict:
		opts.OrphanHandling = orphanStrict
	default:
		return opts, badRequestCode(ErrCodeInvalidImportMode, "invalid orphan_handling mode %q", orphanHandling)
	}
	return opts, nil
}

// ImportNDJSON applies an NDJSON stream with default policy (skip
// duplicates, lenient orphans, chunked commits). Used by the serve
// auto-import watcher; the HTTP handlers drive the importer directly.
func ImportNDJSON(ctx context.Context, st store.TaskStore, r io.Reader) (*api.ImportResponse, error) {
	imp := newImporter(st)
	records := []importRecord{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxImportLineLen)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var rec api.TaskImportRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, imp.normalizeRecord(line, &rec))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	opts := importOptions{Dedupe: dedupeSkip, OrphanHandling: orphanLenient}
	return imp.Run(ctx, records, opts)
}

// importRecord is one normalized line of an import, or its parse error.
type importRecord struct {
	line   int
	task   *models.Task
	labels []string
	deps   []models.Dependency
	has    func(field string) bool
	err    error
}

func (rec *importRecord) hasField(field string) bool {
	return rec.has != nil && rec.has(field)
}

// importer applies NDJSON task records against the store.
type importer struct {
	store store.TaskStore
}

func newImporter(st store.TaskStore) *importer {
	return &importer{store: st}
}

// normalizeRecord validates one import line. Validation failures land in
// rec.err so the caller can count them instead of aborting.
func (imp *importer) normalizeRecord(line int, rec *api.TaskImportRecord) importRecord {
	out := importRecord{line: line, has: rec.Has}

	id := strings.ToLower(strings.TrimSpace(rec.ID))
	if !taskIDRe.MatchString(id) {
		out.err = fmt.Errorf("invalid task id %q", rec.ID)
		return out
	}
	if strings.TrimSpace(rec.Title) == "" {
		out.err = fmt.Errorf("title is required")
		return out
	}

	task := rec.Task
	task.ID = id
	task.Title = strings.TrimSpace(rec.Title)

	if task.Status == "" {
		task.Status = string(models.StatusOpen)
	}
	status, err := models.ParseTaskStatus(task.Status)
	if err != nil {
		out.err = fmt.Errorf("invalid status %q", task.Status)
		return out
	}
	task.Status = string(status)

	if task.Type == "" {
		task.Type = string(models.TypeTask)
	}
	taskType, err := models.ParseTaskType(task.Type)
	if err != nil {
		out.err = fmt.Errorf("invalid type %q", task.Type)
		return out
	}
	task.Type = string(taskType)

	if !models.ValidPriority(task.Priority) {
		out.err = fmt.Errorf("priority %d out of range", task.Priority)
		return out
	}

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	if task.Status == string(models.StatusClosed) && task.ClosedAt == nil {
		closedAt := task.UpdatedAt
		task.ClosedAt = &closedAt
	}
	if task.Status != string(models.StatusClosed) {
		task.ClosedAt = nil
	}

	if task.ParentID != "" {
		parentID := strings.ToLower(strings.TrimSpace(task.ParentID))
		if !taskIDRe.MatchString(parentID) {
			out.err = fmt.Errorf("invalid parent id %q", task.ParentID)
			return out
		}
		task.ParentID = parentID
	}
	if task.SourceRepo != "" {
		slug, ae := canonicalGitRepoSlug(task.SourceRepo)
		if ae != nil {
			out.err = fmt.Errorf("invalid source_repo %q", task.SourceRepo)
			return out
		}
		task.SourceRepo = slug
	}

	labels, ae := normalizeLabels(rec.Labels)
	if ae != nil {
		out.err = fmt.Errorf("%s", ae.Error())
		return out
	}

	deps := make([]models.Dependency, 0, len(rec.Deps))
	for _, dep := range rec.Deps {
		parentID := strings.ToLower(strings.TrimSpace(dep.ParentID))
		if !taskIDRe.MatchString(parentID) {
			out.err = fmt.Errorf("invalid dependency parent id %q", dep.ParentID)
			return out
		}
		depType := strings.ToLower(strings.TrimSpace(dep.Type))
		if depType == "" {
			depType = string(models.DependencyBlocks)
		}
		if depType != string(models.DependencyBlocks) {
			out.err = fmt.Errorf("invalid dependency type %q", dep.Type)
			return out
		}
		deps = append(deps, models.Dependency{ParentID: parentID, Type: depType})
	}

	out.task = &task
	out.labels = labels
	out.deps = deps
	return out
}

// Run applies a batch of records. Atomic mode wraps the whole batch in one
// transaction and fails it on the first record error; chunked mode commits
// in fixed-size transactions and reports per-line errors.
func (imp *importer) Run(ctx context.Context, records []importRecord, opts importOptions) (*api.ImportResponse, error) {
	resp := &api.ImportResponse{
		DryRun:  opts.DryRun,
		TaskIDs: []string{},
	}
	if opts.Atomic {
		resp.ApplyMode = "atomic"
	} else {
		resp.ApplyMode = "chunked"
	}

	// IDs present anywhere in the batch satisfy orphan checks even when the
	// parent record sorts after the child.
	batchIDs := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.err == nil {
			batchIDs[rec.task.ID] = true
		}
	}

	if opts.Atomic {
		err := imp.store.RunInTx(ctx, func(m store.ImportMutator) error {
			for i := range records {
				if err := imp.applyRecord(ctx, m, &records[i], batchIDs, opts, resp); err != nil {
					return fmt.Errorf("line %d: %w", records[i].line, err)
				}
				if records[i].err != nil {
					return fmt.Errorf("line %d: %w", records[i].line, records[i].err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, badRequestCode(ErrCodeImportFailed, "atomic import failed: %v", err)
		}
		resp.AppliedChunks = 1
		return resp, nil
	}

	for start := 0; start < len(records); start += importChunkSize {
		end := start + importChunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]
		err := imp.store.RunInTx(ctx, func(m store.ImportMutator) error {
			for i := range chunk {
				if err := imp.applyRecord(ctx, m, &chunk[i], batchIDs, opts, resp); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, internalError(ErrCodeImportFailed, err)
		}
		resp.AppliedChunks++
	}

	for _, rec := range records {
		if rec.err != nil {
			resp.Errors++
			resp.Messages = append(resp.Messages, fmt.Sprintf("line %d: %v", rec.line, rec.err))
		}
	}
	return resp, nil
}

// applyRecord applies one record inside a transaction. Policy failures are
// recorded on rec.err; only infrastructure errors are returned.
func (imp *importer) applyRecord(ctx context.Context, m store.ImportMutator, rec *importRecord, batchIDs map[string]bool, opts importOptions, resp *api.ImportResponse) error {
	if rec.err != nil {
		return nil
	}

	deps := make([]models.Dependency, 0, len(rec.deps))
	for _, dep := range rec.deps {
		if batchIDs[dep.ParentID] {
			deps = append(deps, dep)
			continue
		}
		exists, err := m.TaskExists(dep.ParentID)
		if err != nil {
			return err
		}
		if exists {
			deps = append(deps, dep)
			continue
		}
		// Strict mode reports the orphan edge as an error but still applies
		// the record; both modes drop the edge itself.
		if opts.OrphanHandling == orphanStrict {
			if rec.err == nil {
				rec.err = fmt.Errorf("dropped dependency on missing task %s", dep.ParentID)
			}
			continue
		}
		resp.Messages = append(resp.Messages, fmt.Sprintf("line %d: dropped dependency on missing task %s", rec.line, dep.ParentID))
	}

	if rec.task.ParentID != "" && !batchIDs[rec.task.ParentID] {
		exists, err := m.TaskExists(rec.task.ParentID)
		if err != nil {
			return err
		}
		if !exists {
			if opts.OrphanHandling == orphanStrict {
				if rec.err == nil {
					rec.err = fmt.Errorf("cleared missing parent %s", rec.task.ParentID)
				}
			} else {
				resp.Messages = append(resp.Messages, fmt.Sprintf("line %d: cleared missing parent %s", rec.line, rec.task.ParentID))
			}
			rec.task.ParentID = ""
		}
	}

	exists, err := m.TaskExists(rec.task.ID)
	if err != nil {
		return err
	}

	switch {
	case !exists:
		resp.Created++
		resp.TaskIDs = append(resp.TaskIDs, rec.task.ID)
		if opts.DryRun {
			return nil
		}
		return m.CreateTask(ctx, rec.task, rec.labels, deps)

	case opts.Dedupe == dedupeSkip:
		resp.Skipped++
		return nil

	case opts.Dedupe == dedupeError:
		rec.err = fmt.Errorf("task id %s already exists", rec.task.ID)
		return nil

	default: // overwrite
		resp.Updated++
		resp.TaskIDs = append(resp.TaskIDs, rec.task.ID)
		if opts.DryRun {
			return nil
		}
		if err := imp.overwriteTask(ctx, m, rec, deps); err != nil {
			return err
		}
		return nil
	}
}

// overwriteTask merges one record into an existing task. Only fields the
// import line carried replace stored values; absent fields, labels, and
// dep edges are preserved.
func (imp *importer) overwriteTask(ctx context.Context, m store.ImportMutator, rec *importRecord, deps []models.Dependency) error {
	task := rec.task
	update := store.TaskUpdate{
		Title:     &task.Title,
		UpdatedAt: time.Now().UTC(),
	}
	if rec.hasField("status") {
		update.Status = &task.Status
		// normalizeRecord pairs closed status with a closed_at timestamp
		// and clears it for every other status. When the line carried
		// neither closed_at nor updated_at, stamp the close time here.
		switch {
		case task.ClosedAt == nil:
			update.ClearClosedAt = true
		case rec.hasField("closed_at") || rec.hasField("updated_at"):
			update.ClosedAt = task.ClosedAt
		default:
			closedAt := update.UpdatedAt
			update.ClosedAt = &closedAt
		}
	}
	if rec.hasField("type") {
		update.Type = &task.Type
	}
	if rec.hasField("priority") {
		update.Priority = &task.Priority
	}
	if rec.hasField("description") {
		update.Description = &task.Description
	}
	if rec.hasField("acceptance_criteria") {
		update.AcceptanceCriteria = &task.AcceptanceCriteria
	}
	if rec.hasField("design") {
		update.Design = &task.Design
	}
	if rec.hasField("notes") {
		update.Notes = &task.Notes
	}
	if rec.hasField("assignee") {
		update.Assignee = &task.Assignee
	}
	if rec.hasField("spec_id") {
		update.SpecID = &task.SpecID
	}
	if rec.hasField("parent_id") {
		update.ParentID = &task.ParentID
	}
	if rec.hasField("source_repo") {
		update.SourceRepo = &task.SourceRepo
	}
	if rec.hasField("custom") {
		update.Custom = &task.Custom
	}

	if err := m.UpdateTask(ctx, task.ID, update); err != nil {
		return err
	}
	if rec.hasField("labels") {
		if err := m.ReplaceLabels(ctx, task.ID, rec.labels); err != nil {
			return err
		}
	}
	if rec.hasField("deps") {
		if err := m.RemoveDependencies(ctx, task.ID); err != nil {
			return err
		}
		for _, dep := range deps {
			if err := m.AddDependency(ctx, task.ID, dep.ParentID, dep.Type); err != nil {
				return err
			}
		}
	}
	return nil
}
