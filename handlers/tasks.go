package handlers

import (
	"errors"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"todo-api/middleware"
	"todo-api/models"
)

// MaxPageSize caps the page_size query parameter.
const MaxPageSize = 100

// TaskHandler serves the /todos endpoints for the authenticated principal.
type TaskHandler struct {
	store    TaskStore
	pageSize int
}

func NewTaskHandler(store TaskStore, pageSize int) *TaskHandler {
	if pageSize <= 0 {
		pageSize = 10
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &TaskHandler{store: store, pageSize: pageSize}
}

type createTaskRequest struct {
	Title       string                  `json:"title" binding:"required,max=255"`
	Description models.Optional[string] `json:"desc"`
}

type replaceTaskRequest struct {
	Title       string                  `json:"title" binding:"required,max=255"`
	Description models.Optional[string] `json:"desc"`
	IsComplete  models.Optional[bool]   `json:"is_complete"`
}

type taskListResponse struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []models.Task `json:"results"`
}

// ListTasks handles GET /todos.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	owner := principal(c)

	verr := &models.ValidationError{}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		verr.Add("page", "A valid positive integer is required.")
	}
	limit, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.pageSize)))
	if err != nil || limit <= 0 || limit > MaxPageSize {
		verr.Add("page_size", "Ensure this value is between 1 and "+strconv.Itoa(MaxPageSize)+".")
	}
	if verr.HasErrors() {
		c.JSON(http.StatusBadRequest, verr.Fields)
		return
	}

	// Pages whose offset does not fit in an int lie past any real listing.
	if page-1 > math.MaxInt/limit {
		invalidPage(c)
		return
	}
	offset := (page - 1) * limit
	list, err := h.store.List(c.Request.Context(), owner, models.Page{Offset: offset, Limit: limit})
	if err != nil {
		respondError(c, err, "list tasks")
		return
	}
	if page > 1 && offset >= list.Count {
		invalidPage(c)
		return
	}

	resp := taskListResponse{Count: list.Count, Results: list.Tasks}
	if offset+len(list.Tasks) < list.Count {
		resp.Next = pageURL(c, page+1)
	}
	if page > 1 {
		resp.Previous = pageURL(c, page-1)
	}
	c.JSON(http.StatusOK, resp)
}

// CreateTask handles POST /todos.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	owner := principal(c)

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if rejectNull(c, "desc", req.Description.Null) {
		return
	}

	task, err := h.store.Create(c.Request.Context(), owner, req.Title, req.Description.Value)
	if err != nil {
		respondError(c, err, "create task")
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GetTask handles GET /todos/:id.
func (h *TaskHandler) GetTask(c *gin.Context) {
	owner := principal(c)
	id, ok := taskID(c)
	if !ok {
		notFound(c)
		return
	}

	task, err := h.store.Get(c.Request.Context(), owner, id)
	if err != nil {
		respondError(c, err, "get task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// PatchTask handles PATCH /todos/:id. Only the fields present in the body
// are changed.
func (h *TaskHandler) PatchTask(c *gin.Context) {
	owner := principal(c)
	id, ok := taskID(c)
	if !ok {
		notFound(c)
		return
	}

	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}

	task, err := h.store.Update(c.Request.Context(), owner, id, patch)
	if err != nil {
		respondError(c, err, "update task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// ReplaceTask handles PUT /todos/:id. Omitted optional fields are reset to
// their defaults.
func (h *TaskHandler) ReplaceTask(c *gin.Context) {
	owner := principal(c)
	id, ok := taskID(c)
	if !ok {
		notFound(c)
		return
	}

	var req replaceTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if rejectNull(c, "desc", req.Description.Null) || rejectNull(c, "is_complete", req.IsComplete.Null) {
		return
	}

	patch := models.TaskPatch{
		Title:       models.Some(req.Title),
		Description: models.Some(req.Description.Value),
		IsComplete:  models.Some(req.IsComplete.Value),
	}
	task, err := h.store.Update(c.Request.Context(), owner, id, patch)
	if err != nil {
		respondError(c, err, "update task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /todos/:id.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	owner := principal(c)
	id, ok := taskID(c)
	if !ok {
		notFound(c)
		return
	}

	if err := h.store.Delete(c.Request.Context(), owner, id); err != nil {
		respondError(c, err, "delete task")
		return
	}
	c.Status(http.StatusNoContent)
}

// rejectNull answers 400 when field was sent as JSON null.
func rejectNull(c *gin.Context, field string, null bool) bool {
	if !null {
		return false
	}
	c.JSON(http.StatusBadRequest, models.NewValidationError(field, "This field may not be null.").Fields)
	return true
}

func invalidPage(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Invalid page."})
}

// principal is only called behind middleware.RequireAuth.
func principal(c *gin.Context) string {
	p, _ := middleware.Principal(c)
	return p
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pageURL(c *gin.Context, page int) *string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path}
	q := c.Request.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	s := u.String()
	return &s
}
