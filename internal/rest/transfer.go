package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aviorian/monad-mindshare/internal/transfer"
)

type TransferController struct {
	builder *transfer.Builder
	tracker *transfer.Tracker
}

func NewTransferController(builder *transfer.Builder, tracker *transfer.Tracker) *TransferController {
	return &TransferController{builder: builder, tracker: tracker}
}

func (c *TransferController) RegisterTransferRoutes(rg *gin.RouterGroup) {
	rg.GET("/transfer", c.handleGetTransfer)
	rg.POST("/transfer", c.handleSend)
	rg.POST("/transfer/preset/:amount", c.handleSendPreset)
	rg.POST("/transfer/draft/open", c.handleOpenDraft)
	rg.PUT("/transfer/draft", c.handleSetDraft)
	rg.DELETE("/transfer/draft", c.handleCancelDraft)
	rg.POST("/transfer/draft/submit", c.handleSubmitDraft)
}

func (c *TransferController) handleGetTransfer(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"state":   c.tracker.State(),
		"draft":   c.builder.Draft(),
		"presets": c.builder.Presets(),
	})
}

func (c *TransferController) handleSend(ctx *gin.Context) {
	var req struct {
		Amount any `json:"amount"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Amount == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}
	state, err := c.builder.Send(ctx.Request.Context(), req.Amount)
	c.respond(ctx, state, err)
}

func (c *TransferController) handleSendPreset(ctx *gin.Context) {
	state, err := c.builder.SendPreset(ctx.Request.Context(), ctx.Param("amount"))
	c.respond(ctx, state, err)
}

func (c *TransferController) handleOpenDraft(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.builder.OpenDraft())
}

func (c *TransferController) handleSetDraft(ctx *gin.Context) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	draft, err := c.builder.SetDraft(req.Amount)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error(), "draft": draft})
		return
	}
	ctx.JSON(http.StatusOK, draft)
}

func (c *TransferController) handleCancelDraft(ctx *gin.Context) {
	c.builder.CancelDraft()
	ctx.Status(http.StatusNoContent)
}

func (c *TransferController) handleSubmitDraft(ctx *gin.Context) {
	state, err := c.builder.SubmitDraft(ctx.Request.Context())
	c.respond(ctx, state, err)
}

func (c *TransferController) respond(ctx *gin.Context, state transfer.State, err error) {
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error(), "state": state})
		return
	}
	ctx.JSON(http.StatusAccepted, state)
}
