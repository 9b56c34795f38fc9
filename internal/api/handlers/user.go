package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"travelsync/internal/database"
	"travelsync/internal/models"
	"travelsync/internal/services"
	"travelsync/pkg/response"
)

const maxAvatarSize = 5 << 20 // 5MB

type UserHandler struct {
	userService *services.UserService
	storage     *database.MinIOClient
}

func NewUserHandler(userService *services.UserService, storage *database.MinIOClient) *UserHandler {
	return &UserHandler{userService: userService, storage: storage}
}

// GetProfile godoc
// @Summary      Get the current user's profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} models.UserResponse
// @Failure      404 {object} models.ErrorResponse
// @Router       /users/me [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := c.GetUint("user_id")

	user, err := h.userService.GetProfile(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    response.ErrCodeUserNotFound,
			Message: response.Message(response.ErrCodeUserNotFound),
		})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile godoc
// @Summary      Update the current user's profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.UpdateProfileRequest true "Profile changes"
// @Success      200 {object} models.UserResponse
// @Failure      400 {object} models.ErrorResponse
// @Failure      401 {object} models.ErrorResponse
// @Router       /users/me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    response.ErrCodeParamInvalid,
			Message: response.Message(response.ErrCodeParamInvalid),
			Details: err.Error(),
		})
		return
	}

	user, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWrongPassword):
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    response.ErrCodeInvalidCredentials,
				Message: "current password is incorrect",
			})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Code:    response.ErrCodeUserNotFound,
				Message: response.Message(response.ErrCodeUserNotFound),
			})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Code:    response.ErrCodeInternal,
				Message: response.Message(response.ErrCodeInternal),
			})
		}
		return
	}

	c.JSON(http.StatusOK, user)
}

// UploadAvatar godoc
// @Summary      Upload an avatar image
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        avatar formData file true "Image file, max 5MB"
// @Success      200 {object} models.UserResponse
// @Failure      400 {object} models.ErrorResponse
// @Router       /users/me/avatar [post]
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID := c.GetUint("user_id")

	file, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    response.ErrCodeParamInvalid,
			Message: "avatar file is required",
		})
		return
	}
	if file.Size > maxAvatarSize {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    response.ErrCodeParamInvalid,
			Message: "avatar exceeds the 5MB limit",
		})
		return
	}

	url, err := h.storage.UploadFile(c.Request.Context(), "avatars", file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    response.ErrCodeInternal,
			Message: "failed to store avatar",
		})
		return
	}

	user, err := h.userService.SetAvatar(userID, url)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    response.ErrCodeInternal,
			Message: response.Message(response.ErrCodeInternal),
		})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Search godoc
// @Summary      Search users by username
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q query string true "Username fragment"
// @Success      200 {array} models.UserResponse
// @Failure      400 {object} models.ErrorResponse
// @Router       /users/search [get]
func (h *UserHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    response.ErrCodeParamInvalid,
			Message: "query parameter q is required",
		})
		return
	}

	users, err := h.userService.SearchByUsername(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    response.ErrCodeInternal,
			Message: response.Message(response.ErrCodeInternal),
		})
		return
	}

	c.JSON(http.StatusOK, users)
}
