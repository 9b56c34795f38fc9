package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"travelsync/internal/models"
	"travelsync/internal/services"
	"travelsync/pkg/response"
)

type AuthHandler struct {
	userService *services.UserService
}

func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// Register godoc
// @Summary      Register a new user
// @Description  Create an account with username, email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body models.RegisterRequest true "Registration payload"
// @Success      201 {object} models.UserResponse
// @Failure      400 {object} models.ErrorResponse
// @Failure      409 {object} models.ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    response.ErrCodeParamInvalid,
			Message: response.Message(response.ErrCodeParamInvalid),
			Details: err.Error(),
		})
		return
	}

	user, err := h.userService.Register(&req)
	if err != nil {
		if errors.Is(err, services.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Code:    response.ErrCodeUserAlreadyExists,
				Message: response.Message(response.ErrCodeUserAlreadyExists),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    response.ErrCodeInternal,
			Message: response.Message(response.ErrCodeInternal),
		})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary      Log in
// @Description  Exchange email and password for a JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body models.LoginRequest true "Login payload"
// @Success      200 {object} models.LoginResponse
// @Failure      400 {object} models.ErrorResponse
// @Failure      401 {object} models.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    response.ErrCodeParamInvalid,
			Message: response.Message(response.ErrCodeParamInvalid),
			Details: err.Error(),
		})
		return
	}

	result, err := h.userService.Login(&req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Code:    response.ErrCodeInvalidCredentials,
			Message: response.Message(response.ErrCodeInvalidCredentials),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
