package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/untoldecay/grns/internal/models"
)

// ListFilter composes list/search constraints with AND.
type ListFilter struct {
	Statuses         []string
	Types            []string
	Priority         *int
	PriorityMin      *int
	PriorityMax      *int
	ParentID         string
	Labels           []string
	LabelsAny        []string
	SpecRegex        string
	Assignee         string
	NoAssignee       bool
	IDs              []string
	TitleContains    string
	DescContains     string
	NotesContains    string
	CreatedAfter     *time.Time
	CreatedBefore    *time.Time
	UpdatedAfter     *time.Time
	UpdatedBefore    *time.Time
	ClosedAfter      *time.Time
	ClosedBefore     *time.Time
	EmptyDescription bool
	NoLabels         bool
	SearchQuery      string
	OrderByID        bool
	Limit            int
	Offset           int
}

type listQueryBuilder struct {
	filter ListFilter
	query  string
	args   []any
	where  []string
}

func buildListQuery(filter ListFilter) (string, []any) {
	b := &listQueryBuilder{filter: filter}
	b.buildSelect()
	b.buildWhere()
	b.buildOrder()
	b.buildPagination()
	return b.query, b.args
}

func (b *listQueryBuilder) buildSelect() {
	if b.filter.SearchQuery == "" {
		b.query = "SELECT " + taskColumns + " FROM tasks"
		return
	}
	b.query = "SELECT " + qualifiedTaskColumns + " FROM tasks JOIN tasks_fts ON tasks.id = tasks_fts.task_id AND tasks_fts MATCH ?"
	b.args = append(b.args, b.filter.SearchQuery)
}

func (b *listQueryBuilder) buildWhere() {
	b.appendStatuses()
	b.appendTypes()
	b.appendPriority()
	b.appendParentID()
	b.appendLabels()
	b.appendAssignee()
	b.appendIDs()
	b.appendContainsFilters()
	b.appendTimeFilters()
	b.appendEmptyDescription()
	b.appendNoLabels()

	if len(b.where) == 0 {
		return
	}
	b.query += " WHERE " + strings.Join(b.where, " AND ")
}

func (b *listQueryBuilder) buildOrder() {
	if b.filter.SearchQuery != "" {
		b.query += " ORDER BY tasks_fts.rank"
		return
	}
	// Export pages by id so the stream stays stable while rows change.
	if b.filter.OrderByID {
		b.query += " ORDER BY id ASC"
		return
	}
	b.query += " ORDER BY updated_at DESC, id ASC"
}

func (b *listQueryBuilder) buildPagination() {
	// Spec regex filtering happens Go-side after the scan, so pagination
	// is applied there as well.
	if b.filter.SpecRegex != "" {
		return
	}

	hasLimit := false
	if b.filter.Limit > 0 {
		b.query += " LIMIT ?"
		b.args = append(b.args, b.filter.Limit)
		hasLimit = true
	}
	if b.filter.Offset > 0 {
		if !hasLimit {
			b.query += " LIMIT -1"
		}
		b.query += " OFFSET ?"
		b.args = append(b.args, b.filter.Offset)
	}
}

func (b *listQueryBuilder) appendStatuses() {
	if len(b.filter.Statuses) == 0 {
		return
	}
	b.where = append(b.where, fmt.Sprintf("status IN (%s)", placeholders(len(b.filter.Statuses))))
	for _, status := range b.filter.Statuses {
		b.args = append(b.args, status)
	}
}

func (b *listQueryBuilder) appendTypes() {
	if len(b.filter.Types) == 0 {
		return
	}
	b.where = append(b.where, fmt.Sprintf("type IN (%s)", placeholders(len(b.filter.Types))))
	for _, taskType := range b.filter.Types {
		b.args = append(b.args, taskType)
	}
}

func (b *listQueryBuilder) appendPriority() {
	if b.filter.Priority != nil {
		b.where = append(b.where, "priority = ?")
		b.args = append(b.args, *b.filter.Priority)
	}
	if b.filter.PriorityMin != nil {
		b.where = append(b.where, "priority >= ?")
		b.args = append(b.args, *b.filter.PriorityMin)
	}
	if b.filter.PriorityMax != nil {
		b.where = append(b.where, "priority <= ?")
		b.args = append(b.args, *b.filter.PriorityMax)
	}
}

func (b *listQueryBuilder) appendParentID() {
	if b.filter.ParentID == "" {
		return
	}
	b.where = append(b.where, "parent_id = ?")
	b.args = append(b.args, b.filter.ParentID)
}

func (b *listQueryBuilder) appendLabels() {
	if len(b.filter.Labels) > 0 {
		b.where = append(b.where, fmt.Sprintf("id IN (SELECT task_id FROM task_labels WHERE label IN (%s) GROUP BY task_id HAVING COUNT(DISTINCT label) = %d)", placeholders(len(b.filter.Labels)), len(b.filter.Labels)))
		for _, label := range b.filter.Labels {
			b.args = append(b.args, label)
		}
	}
	if len(b.filter.LabelsAny) > 0 {
		b.where = append(b.where, fmt.Sprintf("id IN (SELECT task_id FROM task_labels WHERE label IN (%s))", placeholders(len(b.filter.LabelsAny))))
		for _, label := range b.filter.LabelsAny {
			b.args = append(b.args, label)
		}
	}
}

func (b *listQueryBuilder) appendAssignee() {
	if b.filter.Assignee != "" {
		b.where = append(b.where, "assignee = ?")
		b.args = append(b.args, b.filter.Assignee)
	}
	if b.filter.NoAssignee {
		b.where = append(b.where, "(assignee IS NULL OR assignee = '')")
	}
}

func (b *listQueryBuilder) appendIDs() {
	if len(b.filter.IDs) == 0 {
		return
	}
	b.where = append(b.where, fmt.Sprintf("id IN (%s)", placeholders(len(b.filter.IDs))))
	for _, id := range b.filter.IDs {
		b.args = append(b.args, id)
	}
}

func (b *listQueryBuilder) appendContainsFilters() {
	if b.filter.TitleContains != "" {
		b.where = append(b.where, "tasks.title LIKE '%' || ? || '%'")
		b.args = append(b.args, b.filter.TitleContains)
	}
	if b.filter.DescContains != "" {
		b.where = append(b.where, "tasks.description LIKE '%' || ? || '%'")
		b.args = append(b.args, b.filter.DescContains)
	}
	if b.filter.NotesContains != "" {
		b.where = append(b.where, "tasks.notes LIKE '%' || ? || '%'")
		b.args = append(b.args, b.filter.NotesContains)
	}
}

func (b *listQueryBuilder) appendTimeFilters() {
	appendTime := func(column, op string, value *time.Time) {
		if value == nil {
			return
		}
		b.where = append(b.where, column+" "+op+" ?")
		b.args = append(b.args, dbFormatTime(*value))
	}
	appendTime("created_at", ">", b.filter.CreatedAfter)
	appendTime("created_at", "<", b.filter.CreatedBefore)
	appendTime("updated_at", ">", b.filter.UpdatedAfter)
	appendTime("updated_at", "<", b.filter.UpdatedBefore)
	appendTime("closed_at", ">", b.filter.ClosedAfter)
	appendTime("closed_at", "<", b.filter.ClosedBefore)
}

func (b *listQueryBuilder) appendEmptyDescription() {
	if !b.filter.EmptyDescription {
		return
	}
	b.where = append(b.where, "(tasks.description IS NULL OR tasks.description = '')")
}

func (b *listQueryBuilder) appendNoLabels() {
	if !b.filter.NoLabels {
		return
	}
	b.where = append(b.where, "id NOT IN (SELECT task_id FROM task_labels)")
}

func filterRowsBySpecRegex(rows *sql.Rows, pattern string, limit, offset int) ([]models.Task, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	filtered := []models.Task{}
	skipped := 0
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		if task.SpecID == "" || !re.MatchString(task.SpecID) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		filtered = append(filtered, *task)
		if limit > 0 && len(filtered) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return filtered, nil
}
