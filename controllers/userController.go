package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserController serves the signed-in user's profile.
type UserController struct {
	users UserRepository
}

func NewUserController(users UserRepository) *UserController {
	return &UserController{users: users}
}

// GetMe retrieves the authenticated user's information
func (uc *UserController) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := uc.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		storeError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

// UpdateProfile changes the display name.
func (uc *UserController) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Name string `json:"name" binding:"required,max=50"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := uc.users.UpdateName(c.Request.Context(), userID, input.Name)
	if err != nil {
		storeError(c, err, "user")
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}
