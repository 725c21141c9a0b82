package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/housedesk-backend/internal/domain/aggregates"
	"github.com/yungbote/housedesk-backend/internal/domain/requests"
	"github.com/yungbote/housedesk-backend/internal/platform/apierr"
	"github.com/yungbote/housedesk-backend/internal/platform/ctxutil"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// ListEnvelope is the paginated list body.
type ListEnvelope struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
	Skip  int   `json:"skip"`
	Limit int   `json:"limit"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{
		Message:   msg,
		Code:      code,
		RequestID: ctxutil.RequestID(c.Request.Context()),
	}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondErr maps a service error onto the JSON error envelope. Unmapped
// errors become 500 with a generic message and the cause is attached to the
// gin context for the request logger. The body echoes the request id so a
// user report can be matched to the log line.
func RespondErr(c *gin.Context, err error) {
	status, body := Classify(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	body.RequestID = ctxutil.RequestID(c.Request.Context())
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

// Classify returns the HTTP status and client-facing body for err.
func Classify(err error) (int, APIError) {
	if err == nil {
		return http.StatusInternalServerError, APIError{Message: "unknown error", Code: "internal"}
	}
	if ae, ok := apierr.As(err); ok {
		msg := ae.Message
		if msg == "" {
			msg = ae.Code
		}
		return ae.Status, APIError{Message: msg, Code: ae.Code}
	}

	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) {
		return http.StatusInternalServerError, APIError{Message: "internal error", Code: "internal"}
	}
	msg := aggErr.Message
	if msg == "" {
		msg = string(aggErr.Code)
	}
	switch aggErr.Code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest, APIError{Message: msg, Code: "validation"}
	case domainagg.CodeNotFound:
		return http.StatusNotFound, APIError{Message: msg, Code: "not_found"}
	case domainagg.CodeDenied:
		reason, _ := domainagg.DeniedReason(err)
		if reason == "" {
			reason = "denied"
		}
		return http.StatusForbidden, APIError{Message: "action not permitted: " + reason, Code: reason}
	case domainagg.CodeIllegalTransition:
		if it, ok := domainagg.IllegalTransitionOf(err); ok {
			msg = illegalTransitionMessage(it.From, it.To)
		}
		return http.StatusConflict, APIError{Message: msg, Code: "illegal_transition"}
	case domainagg.CodeConflict:
		return http.StatusConflict, APIError{Message: msg, Code: "concurrent_modification"}
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable, APIError{Message: "temporarily unavailable, retry", Code: "retryable"}
	default:
		return http.StatusInternalServerError, APIError{Message: "internal error", Code: "internal"}
	}
}

func illegalTransitionMessage(from, to requests.Status) string {
	next := append(requests.StaffNext(from), requests.ResidentNext(from)...)
	if len(next) == 0 {
		return fmt.Sprintf("cannot change status from %s to %s: %s is final", from, to, from)
	}
	names := make([]string, 0, len(next))
	for _, s := range next {
		names = append(names, string(s))
	}
	return fmt.Sprintf("cannot change status from %s to %s; allowed: %s", from, to, strings.Join(names, ", "))
}
