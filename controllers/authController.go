package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"civicsync/config"
	"civicsync/middlewares"
	"civicsync/models"
	"civicsync/store"
	authUtils "civicsync/utils"
)

// AuthController handles registration, login and logout.
type AuthController struct {
	users UserRepository
	cfg   *config.Config
}

// NewAuthController creates an AuthController backed by users.
func NewAuthController(users UserRepository, cfg *config.Config) *AuthController {
	return &AuthController{users: users, cfg: cfg}
}

type userResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID.Hex(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.RoleOrDefault(),
		CreatedAt: u.CreatedAt,
	}
}

// RegisterUser handles user registration
func (ac *AuthController) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Role     string `json:"role"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.RoleCitizen
	if input.Role != "" {
		role = models.Role(input.Role)
		if !role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
	}

	name := input.Name
	if name == "" {
		name = models.DefaultName(input.Email)
	}

	now := time.Now()
	user := models.User{
		Name:      name,
		Email:     input.Email,
		Role:      role,
		Password:  input.Password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.HashPassword(); err != nil {
		log.WithError(err).Error("error hashing password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	if err := ac.users.Create(c.Request.Context(), &user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
			return
		}
		log.WithError(err).Error("error inserting user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	log.WithFields(log.Fields{"user": user.ID.Hex(), "role": role}).Info("user registered")
	c.JSON(http.StatusCreated, newUserResponse(&user))
}

// LoginUser checks the credentials and issues a token as a cookie and in the body.
func (ac *AuthController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ac.users.FindByEmail(c.Request.Context(), input.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).Error("error loading user")
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !user.ComparePassword(input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := authUtils.GenerateToken(ac.cfg.JWTSecret, authUtils.Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   string(user.RoleOrDefault()),
	})
	if err != nil {
		log.WithError(err).Error("error generating token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	http.SetCookie(c.Writer, ac.cookie(token, int(authUtils.TokenTTL.Seconds())))

	c.JSON(http.StatusOK, gin.H{
		"user":  newUserResponse(user),
		"token": token,
	})
}

// LogoutUser clears the auth cookie.
func (ac *AuthController) LogoutUser(c *gin.Context) {
	http.SetCookie(c.Writer, ac.cookie("", -1))
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (ac *AuthController) cookie(value string, maxAge int) *http.Cookie {
	production := ac.cfg.IsProduction()
	domain := ac.cfg.Domain
	// Cross-site cookies in production must not pin a domain.
	if production {
		domain = ""
	}
	sameSite := http.SameSiteLaxMode
	if production {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Domain:   domain,
		Secure:   production,
		HttpOnly: true,
		SameSite: sameSite,
	}
}
