package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Blocklist is the runtime blocklist; store.BlocklistStore satisfies it.
type Blocklist interface {
	List(ctx context.Context) ([]int64, error)
	Add(ctx context.Context, fid int64) error
	Remove(ctx context.Context, fid int64) error
}

type BlocklistController struct {
	store  Blocklist
	static []int64
}

// NewBlocklistController serves the runtime ids next to the static ones,
// which cannot be removed.
func NewBlocklistController(store Blocklist, static []int64) *BlocklistController {
	return &BlocklistController{store: store, static: append([]int64{}, static...)}
}

func (c *BlocklistController) RegisterBlocklistRoutes(rg *gin.RouterGroup) {
	rg.GET("/blocklist", c.handleListBlocklist)
	rg.POST("/blocklist", c.handleAddBlocked)
	rg.DELETE("/blocklist/:fid", c.handleRemoveBlocked)
}

func (c *BlocklistController) handleListBlocklist(ctx *gin.Context) {
	ids, err := c.store.List(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"static": c.static, "dynamic": ids})
}

func (c *BlocklistController) handleAddBlocked(ctx *gin.Context) {
	var req struct {
		FID int64 `json:"fid"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.FID <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "fid is required"})
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	if err := c.store.Add(reqCtx, req.FID); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *BlocklistController) handleRemoveBlocked(ctx *gin.Context) {
	fid, ok := fidParam(ctx)
	if !ok {
		return
	}
	for _, id := range c.static {
		if id == fid {
			ctx.JSON(http.StatusConflict, gin.H{"error": "fid is on the static blocklist"})
			return
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	if err := c.store.Remove(reqCtx, fid); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}
