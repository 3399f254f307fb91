package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"todo-api/middleware"
	"todo-api/models"
)

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

// respondError writes the response for an error returned by the store.
func respondError(c *gin.Context, err error, operation string) {
	var verr *models.ValidationError
	switch {
	case errors.Is(err, models.ErrNotFound):
		notFound(c)
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, verr.Fields)
	default:
		log.Printf("[%s] failed to %s: %v", middleware.GetRequestID(c), operation, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
	}
}

// bindError converts a request decoding or binding failure into a 400 body.
func bindError(c *gin.Context, err error) {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
		synErr  *json.SyntaxError
	)
	switch {
	case errors.As(err, &verrs):
		fields := &models.ValidationError{}
		for _, fe := range verrs {
			fields.Add(fe.Field(), validationMessage(fe))
		}
		c.JSON(http.StatusBadRequest, fields.Fields)
	case errors.As(err, &typeErr) && typeErr.Field != "":
		c.JSON(http.StatusBadRequest, gin.H{
			typeErr.Field: []string{fmt.Sprintf("Expected a value of type %s.", typeErr.Type)},
		})
	case errors.As(err, &synErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("JSON parse error - %v", synErr)})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body."})
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	}
	return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
}
