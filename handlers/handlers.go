package handlers

import (
	"context"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"todo-api/middleware"
	"todo-api/models"
)

// TaskStore is the persistence the task endpoints need.
type TaskStore interface {
	Create(ctx context.Context, owner, title, description string) (*models.Task, error)
	List(ctx context.Context, owner string, page models.Page) (models.TaskList, error)
	Get(ctx context.Context, owner string, id int64) (*models.Task, error)
	Update(ctx context.Context, owner string, id int64, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, owner string, id int64) error
}

func init() {
	// Report binding errors under their JSON names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	}
}

// NewRouter wires the task and health endpoints onto a gin engine.
func NewRouter(tasks *TaskHandler, health *HealthHandler, verifier *middleware.TokenVerifier) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	r.GET("/health", health.Health)

	todos := r.Group("/todos", middleware.Authenticate(verifier), middleware.RequireAuth())
	todos.GET("", tasks.ListTasks)
	todos.POST("", tasks.CreateTask)
	todos.GET("/:id", tasks.GetTask)
	todos.PATCH("/:id", tasks.PatchTask)
	todos.PUT("/:id", tasks.ReplaceTask)
	todos.DELETE("/:id", tasks.DeleteTask)

	return r
}
