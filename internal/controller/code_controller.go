package controller

import (
	"context"
	"net/http"

	"desorientado_backend/internal/highlight"
	"desorientado_backend/internal/service"
	"desorientado_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type codeRunner interface {
	Run(ctx context.Context, req service.RunRequest) (*service.RunResult, error)
}

// CodeController backs the "try it" boxes: running, highlighting and the
// editor key helpers.
type CodeController struct {
	Runner codeRunner
}

func NewCodeController(runner codeRunner) *CodeController {
	return &CodeController{Runner: runner}
}

// RunCode godoc
// @Summary Run a Java snippet
// @Description Compiles and runs the source in the sandbox
// @Tags code
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.RunRequest true "source and stdin"
// @Success 200 {object} util.Response{data=service.RunResult}
// @Failure 400 {object} util.Response
// @Failure 502 {object} util.Response "sandbox failed"
// @Failure 503 {object} util.Response "sandbox unavailable"
// @Router /api/code/run [post]
func (c *CodeController) RunCode(ctx *gin.Context) {
	if _, ok := currentUser(ctx); !ok {
		return
	}

	var req service.RunRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if len(req.Source) > service.MaxSourceBytes {
		util.Error(ctx, http.StatusRequestEntityTooLarge, "source too large")
		return
	}

	res, err := c.Runner.Run(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// swagger:model HighlightRequest
type HighlightRequest struct {
	Source string `json:"source"`
}

// Highlight godoc
// @Summary Highlight Java source
// @Description Splits the source into coloured spans covering it exactly
// @Tags code
// @Accept json
// @Produce json
// @Param body body HighlightRequest true "source"
// @Success 200 {object} util.Response{data=[]highlight.Span}
// @Router /api/code/highlight [post]
func (c *CodeController) Highlight(ctx *gin.Context) {
	var req HighlightRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if len(req.Source) > service.MaxSourceBytes {
		util.Error(ctx, http.StatusRequestEntityTooLarge, "source too large")
		return
	}

	util.Success(ctx, highlight.Tokenize(req.Source))
}

// swagger:model EditRequest
type EditRequest struct {
	Text   string `json:"text"`
	Cursor int    `json:"cursor"`
	Key    string `json:"key" binding:"required,oneof=tab enter close_brace"`
}

// EditKey godoc
// @Summary Apply an editor key
// @Description Tab, Enter with auto-indent, or a closing brace that dedents
// @Tags code
// @Accept json
// @Produce json
// @Param body body EditRequest true "buffer, cursor and key"
// @Success 200 {object} util.Response{data=highlight.Edit}
// @Router /api/code/edit [post]
func (c *CodeController) EditKey(ctx *gin.Context) {
	var req EditRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if len(req.Text) > service.MaxSourceBytes {
		util.Error(ctx, http.StatusRequestEntityTooLarge, "source too large")
		return
	}

	var edit highlight.Edit
	switch req.Key {
	case "tab":
		edit = highlight.Tab(req.Text, req.Cursor)
	case "enter":
		edit = highlight.Enter(req.Text, req.Cursor)
	default:
		edit = highlight.CloseBrace(req.Text, req.Cursor)
	}
	util.Success(ctx, edit)
}
