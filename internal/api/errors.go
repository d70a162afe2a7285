// internal/api/errors.go
package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	apperrors "hosting-assessment/internal/common/errors"
)

type errorPayload struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details string   `json:"details,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

// statusFor maps an error onto the HTTP status the API answers with.
func statusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch apperrors.Normalize(err).Code {
	case apperrors.ErrCodeValidationFailed:
		return fiber.StatusBadRequest
	case apperrors.ErrCodeAssessmentNotFound:
		return fiber.StatusNotFound
	case apperrors.ErrCodeInvalidTransition:
		return fiber.StatusConflict
	case apperrors.ErrCodeSearchUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := strings.ToUpper(strings.ReplaceAll(utils.StatusMessage(fe.Code), " ", "_"))
		return c.Status(status).JSON(errorBody{Error: errorPayload{Code: code, Message: fe.Message}})
	}

	stdErr := apperrors.Normalize(err)
	payload := errorPayload{
		Code:    string(stdErr.Code),
		Message: stdErr.Message,
		Details: stdErr.Details,
		Missing: apperrors.MetadataStrings(stdErr, "missing"),
		Invalid: apperrors.MetadataStrings(stdErr, "invalid"),
	}
	if status >= fiber.StatusInternalServerError && stdErr.Code != apperrors.ErrCodeSearchUnavailable {
		s.logger.Error("Request error", map[string]interface{}{
			"path":      c.Path(),
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		payload.Details = ""
	}
	return c.Status(status).JSON(errorBody{Error: payload})
}
