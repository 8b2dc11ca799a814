package handler

import (
	"errors"
	"net/http"
	"sort"

	"github.com/blues/escrow/internal/escrow"
	"github.com/blues/escrow/internal/logger"
	"github.com/gin-gonic/gin"
)

// LedgerHandler exposes donations, settlement and refunds. The donor and
// caller accounts are taken from the request body as given: the transport in
// front of the service must authenticate them.
type LedgerHandler struct {
	ledger *escrow.Ledger
}

func NewLedgerHandler(ledger *escrow.Ledger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Donate 捐款
func (h *LedgerHandler) Donate(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req DonateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ev, err := h.ledger.Donate(c.Request.Context(), id, req.Donor, req.Amount)
	if errors.Is(err, escrow.ErrTransferPending) {
		PendingResponse(c, ev, err)
		return
	}
	if err != nil {
		logger.Warn("Donation to project %d by %s rejected: %v", id, req.Donor, err)
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "捐款成功", ToEventResponse(ev))
}

// Settle 项目方提取资金
func (h *LedgerHandler) Settle(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ev, err := h.ledger.Settle(c.Request.Context(), id, req.Caller)
	if errors.Is(err, escrow.ErrTransferPending) {
		PendingResponse(c, ev, err)
		return
	}
	if err != nil {
		logger.Warn("Settlement of project %d by %s rejected: %v", id, req.Caller, err)
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "结算成功", ToEventResponse(ev))
}

// Refund 捐款人退款
func (h *LedgerHandler) Refund(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ev, err := h.ledger.Refund(c.Request.Context(), id, req.Donor)
	if errors.Is(err, escrow.ErrTransferPending) {
		PendingResponse(c, ev, err)
		return
	}
	if err != nil {
		logger.Warn("Refund of project %d to %s rejected: %v", id, req.Donor, err)
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "退款成功", ToEventResponse(ev))
}

// GetContributions 获取项目贡献记录
func (h *LedgerHandler) GetContributions(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	snap, err := h.ledger.Snapshot(id)
	if err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	records := make([]ContributionResponse, 0, len(snap.Contributions))
	for donor, amount := range snap.Contributions {
		records = append(records, ContributionResponse{ProjectID: id, Donor: donor, Amount: amount})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Donor < records[j].Donor })

	SuccessResponse(c, http.StatusOK, "获取项目贡献记录成功", GetContributionsResponse{
		ProjectID:     id,
		TotalRaised:   snap.Project.TotalRaised,
		Contributions: records,
	})
}

// GetContribution 获取单个捐款人的贡献
func (h *LedgerHandler) GetContribution(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	donor := c.Param("donor")

	amount, err := h.ledger.GetContribution(id, donor)
	if err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取贡献成功", ContributionResponse{
		ProjectID: id,
		Donor:     donor,
		Amount:    amount,
	})
}

// GetEvents 获取项目事件
func (h *LedgerHandler) GetEvents(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	events, err := h.ledger.Events(c.Request.Context(), id)
	if err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目事件成功", GetEventsResponse{Events: ToEventResponseList(events)})
}
