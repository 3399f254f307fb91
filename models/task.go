package models

import "time"

// Task is a todo item owned by exactly one principal.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"desc"`
	IsComplete  bool      `json:"is_complete"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskPatch carries the fields of a partial update. Fields that were not
// supplied are left untouched by the store.
type TaskPatch struct {
	Title       Optional[string] `json:"title"`
	Description Optional[string] `json:"desc"`
	IsComplete  Optional[bool]   `json:"is_complete"`
}

// Empty reports whether no field is present.
func (p TaskPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.IsComplete.Set
}

// TaskList is one page of an owner's tasks together with the owner's total.
type TaskList struct {
	Count int
	Tasks []Task
}

// Page selects a window of a listing. The zero value selects everything.
type Page struct {
	Offset int
	Limit  int
}
