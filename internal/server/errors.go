package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/geoatlas/internal/catalog/domain"
	"github.com/smallbiznis/geoatlas/internal/geo"
	ledgerdomain "github.com/smallbiznis/geoatlas/internal/importledger/domain"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	projectiondomain "github.com/smallbiznis/geoatlas/internal/projection/domain"
	proximitydomain "github.com/smallbiznis/geoatlas/internal/proximity/domain"
	"github.com/smallbiznis/geoatlas/pkg/db"
	"github.com/smallbiznis/geoatlas/pkg/db/pagination"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

// validationSentinels are matched in order; wrapped errors report the first
// sentinel they contain.
var validationSentinels = []error{
	ErrInvalidRequest,
	proximitydomain.ErrInvalidCenter,
	proximitydomain.ErrInvalidLimit,
	projectiondomain.ErrInvalidCenter,
	projectiondomain.ErrInvalidRadius,
	geo.ErrInvalidCoordinate,
	projectiondomain.ErrInvalidCountry,
	projectiondomain.ErrInvalidLimit,
	projectiondomain.ErrInvalidMinPopulation,
	catalogdomain.ErrInvalidCountry,
	catalogdomain.ErrInvalidLimit,
	catalogdomain.ErrInvalidPostalCode,
	ledgerdomain.ErrInvalidPageToken,
	ledgerdomain.ErrInvalidTimeRange,
	ledgerdomain.ErrInvalidStatus,
	pagination.ErrInvalidCursor,
	placedomain.ErrUnknownCategory,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if sentinel := validationSentinel(err); sentinel != nil {
		code := sentinel.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, db.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "storage_unavailable",
			Message: "storage unavailable",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger without exposing messages.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	if status == http.StatusInternalServerError {
		return payload.Type, "internal_error"
	}
	return payload.Type, payload.Type
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationSentinel(err error) error {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_center", "invalid_coordinate":
		return "lat,lon"
	case "invalid_page_token", "invalid_cursor":
		return "page_token"
	case "invalid_time_range":
		return "start_at,end_at"
	case "invalid_radius":
		return "radius_km"
	case "unknown_category":
		return "category"
	}
	return strings.TrimPrefix(code, "invalid_")
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_center", "invalid_coordinate":
		return "latitude must be within [-90, 90] and longitude within [-180, 180]"
	case "invalid_limit":
		return "limit must not be negative"
	case "invalid_radius":
		return "radius_km must be a finite, non-negative number"
	case "invalid_country":
		return "country must be an ISO 3166-1 alpha-2 code"
	default:
		return "invalid value"
	}
}
