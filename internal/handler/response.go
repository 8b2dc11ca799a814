package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/blues/escrow/internal/escrow"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// LedgerErrorResponse maps an escrow error onto a status and code.
func LedgerErrorResponse(c *gin.Context, err error) {
	status, code := classify(err)
	ErrorResponse(c, status, code, err.Error())
}

// PendingResponse answers an operation that was committed while its transfer
// still awaits confirmation. The event is final; clients must not retry.
func PendingResponse(c *gin.Context, ev escrow.Event, err error) {
	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Code:    "TRANSFER_PENDING",
		Message: err.Error(),
		Data:    ToEventResponse(ev),
	})
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{escrow.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{escrow.ErrInvalidSchedule, http.StatusBadRequest, "INVALID_SCHEDULE"},
	{escrow.ErrInvalidGoal, http.StatusBadRequest, "INVALID_GOAL"},
	{escrow.ErrInvalidAccount, http.StatusBadRequest, "INVALID_ACCOUNT"},
	{escrow.ErrZeroAmount, http.StatusBadRequest, "ZERO_AMOUNT"},
	{escrow.ErrNotOrganizer, http.StatusForbidden, "NOT_ORGANIZER"},
	{escrow.ErrWindowClosed, http.StatusConflict, "WINDOW_CLOSED"},
	{escrow.ErrWindowNotStarted, http.StatusConflict, "WINDOW_NOT_STARTED"},
	{escrow.ErrWindowOpen, http.StatusConflict, "WINDOW_OPEN"},
	{escrow.ErrAmountOverflow, http.StatusConflict, "AMOUNT_OVERFLOW"},
	{escrow.ErrGoalNotReached, http.StatusConflict, "GOAL_NOT_REACHED"},
	{escrow.ErrGoalReached, http.StatusConflict, "GOAL_REACHED"},
	{escrow.ErrAlreadySettled, http.StatusConflict, "ALREADY_SETTLED"},
	{escrow.ErrNoContribution, http.StatusConflict, "NO_CONTRIBUTION"},
	{escrow.ErrTransferFailed, http.StatusBadGateway, "TRANSFER_FAILED"},
}

func classify(err error) (int, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func projectID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid project id")
		return 0, false
	}
	return id, true
}
