package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/nepq-coach-backend/internal/data/dberr"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondErr picks the status and code from err. Coded API errors win,
// then the nepq validation sentinels, then the generic apierr sentinels,
// then database failure classes.
func RespondErr(c *gin.Context, err error) {
	status, code := Classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RespondError(c, status, code, err)
}

func Classify(err error) (int, string) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		code := ae.Code
		if code == "" {
			code = codeForStatus(ae.Status)
		}
		return ae.Status, code
	}
	switch {
	case errors.Is(err, nepq.ErrMalformedTranscript):
		return http.StatusBadRequest, "malformed_transcript"
	case errors.Is(err, nepq.ErrOutOfRange):
		return http.StatusUnprocessableEntity, "stage_out_of_range"
	case errors.Is(err, nepq.ErrInvalidScore):
		return http.StatusUnprocessableEntity, "invalid_score"
	case errors.Is(err, nepq.ErrInvalidViolation):
		return http.StatusUnprocessableEntity, "invalid_violation"
	case errors.Is(err, apierr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apierr.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apierr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apierr.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apierr.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_request"
	}
	switch dberr.Classify(err) {
	case dberr.KindNotFound:
		return http.StatusNotFound, "not_found"
	case dberr.KindConflict:
		return http.StatusConflict, "conflict"
	case dberr.KindRetryable:
		return http.StatusServiceUnavailable, "retry_later"
	}
	return http.StatusInternalServerError, "internal_error"
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable"
	}
	return "internal_error"
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
