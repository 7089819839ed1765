package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aviorian/monad-mindshare/internal/selection"
)

type SelectionController struct {
	set *selection.Set
}

func NewSelectionController(set *selection.Set) *SelectionController {
	return &SelectionController{set: set}
}

func (c *SelectionController) RegisterSelectionRoutes(rg *gin.RouterGroup) {
	rg.GET("/selection", c.handleGetSelection)
	rg.POST("/selection/:fid", c.handlePick)
	rg.DELETE("/selection/:fid", c.handleDeselect)
	rg.DELETE("/selection", c.handleClear)
}

func (c *SelectionController) handleGetSelection(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.set.Snapshot())
}

func (c *SelectionController) handlePick(ctx *gin.Context) {
	fid, ok := fidParam(ctx)
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 15*time.Second)
	defer cancel()
	profile, err := c.set.Pick(reqCtx, fid)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profile": profile, "selection": c.set.Snapshot()})
}

func (c *SelectionController) handleDeselect(ctx *gin.Context) {
	fid, ok := fidParam(ctx)
	if !ok {
		return
	}
	if !c.set.Deselect(fid) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "author is not selected"})
		return
	}
	ctx.JSON(http.StatusOK, c.set.Snapshot())
}

func (c *SelectionController) handleClear(ctx *gin.Context) {
	c.set.Clear()
	ctx.Status(http.StatusNoContent)
}

func fidParam(ctx *gin.Context) (int64, bool) {
	fid, err := strconv.ParseInt(ctx.Param("fid"), 10, 64)
	if err != nil || fid <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "fid must be a positive integer"})
		return 0, false
	}
	return fid, true
}
