package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xpanvictor/annotator/internal/domains/user"
	"github.com/xpanvictor/annotator/pkg/Logger"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService user.UserService
	logger      *Logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService user.UserService, logger *Logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// Upsert records the profile handed over after an OAuth login
// @Summary Create or update user
// @Tags Users
// @Accept json
// @Produce json
// @Param request body user.Profile true "OAuth profile"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse "Invalid request data"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/users [put]
func (h *UserHandler) Upsert(c *gin.Context) {
	var req user.Profile
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request data",
			Details: err.Error(),
		})
		return
	}

	u, err := h.userService.Upsert(c.Request.Context(), req)
	if err != nil {
		h.logger.Errorf("upsert user error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, UserResponse{User: *u})
}

// GetUser returns a user by id
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /api/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid user ID"})
		return
	}

	u, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
			return
		}
		h.logger.Errorf("get user error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, UserResponse{User: *u})
}
