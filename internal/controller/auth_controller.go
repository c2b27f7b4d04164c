package controller

import (
	"context"
	"net/http"

	"desorientado_backend/internal/model"
	"desorientado_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type authService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	GetUser(ctx context.Context, userID uint) (*model.User, error)
}

type AuthController struct {
	AuthService authService
}

func NewAuthController(authService authService) *AuthController {
	return &AuthController{AuthService: authService}
}

// RegisterRequest defines model for registration
// swagger:model RegisterRequest
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// Register godoc
// @Summary Register a new learner
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body RegisterRequest true "account data"
// @Success 201 {object} util.Response{data=object} "created"
// @Failure 400 {object} util.Response "invalid request"
// @Failure 409 {object} util.Response "email already registered"
// @Failure 500 {object} util.Response "internal error"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.Register(ctx.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"id": user.ID})
}

// swagger:model LoginRequest
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary Log in
// @Description Checks the credentials and returns a JWT
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "credentials"
// @Success 200 {object} util.Response{data=object} "token and user"
// @Failure 400 {object} util.Response "invalid request"
// @Failure 401 {object} util.Response "invalid credentials"
// @Failure 403 {object} util.Response "account disabled"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, user, err := c.AuthService.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"token": token,
		"user":  user,
	})
}

// GetProfile godoc
// @Summary Current user profile
// @Tags auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.User}
// @Failure 401 {object} util.Response
// @Router /api/profile [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	user, err := c.AuthService.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if user.Disabled {
		util.Error(ctx, http.StatusForbidden, util.ErrUserDisabled.Error())
		return
	}

	util.Success(ctx, user)
}
