package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure without leaking internals
type ErrorDetail struct {
	Message  string            `json:"message"`
	TextCode string            `json:"text_code,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

var categoryStatus = map[errors.Category]int{
	errors.CategoryAuth:       http.StatusUnauthorized,
	errors.CategoryAuthz:      http.StatusUnauthorized,
	errors.CategoryValidation: http.StatusUnprocessableEntity,
	errors.CategoryBadInput:   http.StatusBadRequest,
	errors.CategoryNotFound:   http.StatusNotFound,
	errors.CategoryConflict:   http.StatusConflict,
	errors.CategoryInternal:   http.StatusInternalServerError,
}

// HTTPStatus maps an error to a status code. Rich errors use their code
// or category, anything else is a 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	if status, ok := categoryStatus[richErr.Category]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// ErrorDetailFor builds the client facing error detail
func ErrorDetailFor(err error) ErrorDetail {
	status := HTTPStatus(err)

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		var fe *fiber.Error
		if errors.As(err, &fe) && status < 500 {
			return ErrorDetail{Message: fe.Message}
		}
		return ErrorDetail{Message: "internal server error", TextCode: TextCodeInternal}
	}

	if status >= 500 {
		textCode := richErr.TextCode
		if textCode == "" {
			textCode = TextCodeInternal
		}
		return ErrorDetail{Message: "internal server error", TextCode: textCode}
	}

	detail := ErrorDetail{
		Message:  richErr.Message,
		TextCode: richErr.TextCode,
	}

	if richErr.Metadata != nil {
		if fields, ok := richErr.Metadata["fields"].(map[string]string); ok && len(fields) > 0 {
			detail.Fields = fields
		}
	}

	return detail
}

// WriteError writes the JSON error envelope with the mapped status. It
// satisfies router.ErrorHandler.
func WriteError(c router.Context, err error) error {
	return c.JSON(HTTPStatus(err), ErrorBody{Error: ErrorDetailFor(err)})
}

var _ router.ErrorHandler = WriteError

// ErrorHandler is WriteError with logging of server side failures
func ErrorHandler(logger Logger) router.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c router.Context, err error) error {
		if HTTPStatus(err) >= 500 {
			logger.Error("request failed", "path", c.Path(), "method", c.Method(), "error", err)
		}
		return WriteError(c, err)
	}
}

// FiberErrorHandler is the fiber.Config ErrorHandler for errors that
// escape the router, it writes the same envelope as WriteError
func FiberErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx, err error) error {
		if HTTPStatus(err) >= 500 {
			logger.Error("request failed", "path", c.Path(), "method", c.Method(), "error", err)
		}
		return c.Status(HTTPStatus(err)).JSON(ErrorBody{Error: ErrorDetailFor(err)})
	}
}
