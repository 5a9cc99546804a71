package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// linkRequest represents the structure for a request to create a link.
type linkRequest struct {
	OriginalURL string `json:"originalUrl" validate:"required,url"`
	ShortCode   string `json:"shortCode,omitempty"`
}

// linkResponse represents a link together with its click statistics.
type linkResponse struct {
	ID          uuid.UUID  `json:"id"`
	OriginalURL string     `json:"originalUrl"`
	ShortCode   string     `json:"shortCode"`
	Clicks      int64      `json:"clicks"`
	LastClicked *time.Time `json:"lastClicked"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toLinkResponse(link *entity.Link) linkResponse {
	return linkResponse{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		Clicks:      link.Clicks,
		LastClicked: link.LastClicked,
		CreatedAt:   link.CreatedAt,
	}
}

func toLinkResponses(links []*entity.Link) []linkResponse {
	resp := make([]linkResponse, 0, len(links))
	for _, link := range links {
		resp = append(resp, toLinkResponse(link))
	}
	return resp
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

var linkDeletedResponse = messageResponse{
	Status:  statusSuccess,
	Message: "link deleted",
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	linkNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "link not found",
	}

	shortCodeExistsResponse = errorResponse{
		Status:  statusError,
		Message: "short code already in use",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for validator errors.
func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}

// fieldErrorResponse reports a single invalid field rejected by the use case.
func fieldErrorResponse(field, message string) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors: []validationError{
			{Field: field, Message: message},
		},
	}
}
