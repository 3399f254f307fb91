package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"todo-api/database"
	"todo-api/models"
)

const taskColumns = "id, owner, title, description, is_complete, created_at, updated_at"

// TaskStore persists tasks. Every operation is scoped to an owner and never
// reads or writes rows belonging to someone else.
type TaskStore struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

// New returns a TaskStore backed by db.
func New(db *sql.DB, dialect database.Dialect) *TaskStore {
	return &TaskStore{
		db:      db,
		dialect: dialect,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *TaskStore) q(query string) string {
	return database.Rebind(s.dialect, query)
}

// Create inserts a new, incomplete task owned by owner.
func (s *TaskStore) Create(ctx context.Context, owner, title, description string) (*models.Task, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := models.ValidateTitle(title); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	query := `
	INSERT INTO todos (owner, title, description, is_complete, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	RETURNING id
	`
	var id int64
	err = tx.QueryRowContext(ctx, s.q(query), owner, title, description, false, now, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	task, err := s.get(ctx, tx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}
	return task, nil
}

// Count returns the number of tasks owned by owner.
func (s *TaskStore) Count(ctx context.Context, owner string) (int, error) {
	if err := requireOwner(owner); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM todos WHERE owner = ?"), owner).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

// List returns the owner's tasks ordered by title, ties broken by id, along
// with the owner's total task count.
func (s *TaskStore) List(ctx context.Context, owner string, page models.Page) (models.TaskList, error) {
	if page.Offset < 0 || page.Limit < 0 {
		return models.TaskList{}, fmt.Errorf("invalid page offset=%d limit=%d", page.Offset, page.Limit)
	}

	total, err := s.Count(ctx, owner)
	if err != nil {
		return models.TaskList{}, err
	}

	query := "SELECT " + taskColumns + " FROM todos WHERE owner = ? ORDER BY " + s.titleOrder() + ", id ASC"
	args := []any{owner}
	if page.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, page.Limit, page.Offset)
	} else if page.Offset > 0 {
		// SQLite has no OFFSET without LIMIT; -1 means unbounded there.
		if s.dialect == database.Postgres {
			query += " OFFSET ?"
		} else {
			query += " LIMIT -1 OFFSET ?"
		}
		args = append(args, page.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return models.TaskList{}, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		var task models.Task
		if err := scanTask(rows, &task); err != nil {
			return models.TaskList{}, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return models.TaskList{}, fmt.Errorf("list tasks: %w", err)
	}

	return models.TaskList{Count: total, Tasks: tasks}, nil
}

// Get returns the task with id if it belongs to owner.
func (s *TaskStore) Get(ctx context.Context, owner string, id int64) (*models.Task, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	return s.get(ctx, s.db, owner, id)
}

// Update applies the fields present in patch and refreshes updated_at.
func (s *TaskStore) Update(ctx context.Context, owner string, id int64, patch models.TaskPatch) (*models.Task, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = ?"}
	args := []any{s.now()}
	if patch.Title.Set {
		sets = append(sets, "title = ?")
		args = append(args, patch.Title.Value)
	}
	if patch.Description.Set {
		sets = append(sets, "description = ?")
		args = append(args, patch.Description.Value)
	}
	if patch.IsComplete.Set {
		sets = append(sets, "is_complete = ?")
		args = append(args, patch.IsComplete.Value)
	}
	args = append(args, id, owner)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	query := "UPDATE todos SET " + strings.Join(sets, ", ") + " WHERE id = ? AND owner = ?"
	result, err := tx.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return nil, err
	}

	task, err := s.get(ctx, tx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return task, nil
}

// Delete permanently removes the task with id if it belongs to owner.
func (s *TaskStore) Delete(ctx context.Context, owner string, id int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, s.q("DELETE FROM todos WHERE id = ? AND owner = ?"), id, owner)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectOneRow(result)
}

// titleOrder sorts titles by code point on every dialect.
func (s *TaskStore) titleOrder() string {
	if s.dialect == database.Postgres {
		return `title COLLATE "C" ASC`
	}
	return "title ASC"
}

func (s *TaskStore) get(ctx context.Context, q querier, owner string, id int64) (*models.Task, error) {
	query := "SELECT " + taskColumns + " FROM todos WHERE id = ? AND owner = ?"

	var task models.Task
	err := scanTask(q.QueryRowContext(ctx, s.q(query), id, owner), &task)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &task, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner, task *models.Task) error {
	err := row.Scan(&task.ID, &task.Owner, &task.Title, &task.Description,
		&task.IsComplete, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return err
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func validatePatch(patch models.TaskPatch) error {
	verr := &models.ValidationError{}
	if patch.Title.Set {
		if patch.Title.Null {
			verr.Add("title", "This field may not be null.")
		} else if err := models.ValidateTitle(patch.Title.Value); err != nil {
			var titleErr *models.ValidationError
			if errors.As(err, &titleErr) {
				for _, msg := range titleErr.Fields["title"] {
					verr.Add("title", msg)
				}
			}
		}
	}
	if patch.Description.Set && patch.Description.Null {
		verr.Add("desc", "This field may not be null.")
	}
	if patch.IsComplete.Set && patch.IsComplete.Null {
		verr.Add("is_complete", "This field may not be null.")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func requireOwner(owner string) error {
	if owner == "" {
		return errors.New("owner is required")
	}
	return nil
}
