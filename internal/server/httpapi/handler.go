package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/standard/dreamcalendar/internal/common"
	"github.com/standard/dreamcalendar/internal/logging"
	"github.com/standard/dreamcalendar/internal/server/services"
)

type Handler struct {
	service UserService
	logger  logging.Logger
}

type CreateUserInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var input CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.service.Create(c.Request.Context(), services.UserDTO{
		Email:    input.Email,
		Name:     input.Name,
		Password: input.Password,
	})
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	case err != nil:
		h.internalError(c, "create user", err)
		return
	case !ok:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "user could not be created"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created"})
}

func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.service.LogInByEmailPassword(c.Request.Context(), services.Credentials{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		h.internalError(c, "login", err)
		return
	}
	if pair == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Validate reads the token from the access_token header, falling back to
// Authorization: Bearer.
func (h *Handler) Validate(c *gin.Context) {
	token := c.GetHeader(common.AccessTokenHeaderName)
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), common.BearerPrefix)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "access token is required"})
		return
	}

	st, err := h.service.LogInByAccessToken(c.Request.Context(), token)
	if err != nil {
		h.internalError(c, "validate token", err)
		return
	}

	c.JSON(st.HTTPStatus(), gin.H{"status": st.String()})
}

func (h *Handler) Refresh(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.service.UpdateAccessToken(c.Request.Context(), input.RefreshToken)
	if err != nil {
		h.internalError(c, "refresh token", err)
		return
	}
	if pair == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token rejected, log in again"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.service.FindAll(c.Request.Context())
	if err != nil {
		h.internalError(c, "list users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) SearchUsers(c *gin.Context) {
	users, err := h.service.FindUsersByUsername(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.internalError(c, "search users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	user, err := h.service.FindByID(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "get user", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) GetUserByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	user, err := h.service.FindByEmail(c.Request.Context(), email)
	if err != nil {
		h.internalError(c, "get user by email", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "delete user", err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

// internalError logs err and answers with a body that does not leak it.
func (h *Handler) internalError(c *gin.Context, op string, err error) {
	h.logger.Error(c.Request.Context(), op+" failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
