package handlers

import (
	"strconv"

	"example.com/backstage/services/tenders/internal/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrorItem is a single rendered error
type ErrorItem struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Errors []ErrorItem `json:"errors"`
}

// WriteError renders err with the status code of its kind. Unclassified
// errors are logged and rendered without their detail.
func WriteError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err, "An unexpected error occurred")
	}

	status := appErr.Kind.StatusCode()
	detail := appErr.Message
	switch appErr.Kind {
	case apperrors.KindInternal:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Internal error")
	case apperrors.KindExternalSystem:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("External system error")
		detail = err.Error()
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Errors: []ErrorItem{{
		Status: strconv.Itoa(status),
		Title:  appErr.Kind.String(),
		Detail: detail,
	}}})
}

func projectID(c *gin.Context) (uint, error) {
	raw := c.Param("procID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("Invalid project id '%s'", raw)
	}
	return uint(id), nil
}

func boolQuery(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.Validation("Query parameter '%s' must be true or false", name)
	}
	return &v, nil
}

func bindJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return apperrors.Validation("Invalid request body: %s", err.Error())
	}
	return nil
}
