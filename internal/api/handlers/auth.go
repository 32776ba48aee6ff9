package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/rkany/pigeon/internal/api/middleware"
	"github.com/rkany/pigeon/internal/assets"
	"github.com/rkany/pigeon/internal/crypto"
	"github.com/rkany/pigeon/internal/store"
	"github.com/rkany/pigeon/pkg/logger"
	"github.com/rkany/pigeon/pkg/types"
)

const minPasswordLength = 6

type AuthHandler struct {
	store      *store.Store
	jwtManager *crypto.JWTManager
	uploads    assets.Uploader
}

func NewAuthHandler(s *store.Store, jwtManager *crypto.JWTManager, uploads assets.Uploader) *AuthHandler {
	return &AuthHandler{
		store:      s,
		jwtManager: jwtManager,
		uploads:    uploads,
	}
}

// PostSignup handles POST /v1/auth/signup
func (h *AuthHandler) PostSignup(c *gin.Context) {
	var req types.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "fill all fields"})
		return
	}

	if len(req.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "password must be at least 6 characters"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Errorf("PostSignup: bcrypt failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), req.Email, req.FirstName, req.LastName, string(hash))
	if errors.Is(err, store.ErrEmailTaken) {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "user already exists"})
		return
	}
	if err != nil {
		logger.Errorf("PostSignup: CreateUser failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
		return
	}

	token, err := h.jwtManager.CreateToken(user.ID)
	if err != nil {
		logger.Errorf("PostSignup: CreateToken failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, types.AuthResponse{Token: token, User: user})
}

// PostLogin handles POST /v1/auth/login
func (h *AuthHandler) PostLogin(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "fill all fields"})
		return
	}

	user, hash, err := h.store.UserByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid credentials"})
		return
	}
	if err != nil {
		logger.Errorf("PostLogin: UserByEmail failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid credentials"})
		return
	}

	token, err := h.jwtManager.CreateToken(user.ID)
	if err != nil {
		logger.Errorf("PostLogin: CreateToken failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, types.AuthResponse{Token: token, User: user})
}

// PostLogout handles POST /v1/auth/logout. Tokens are stateless; the client
// discards its copy.
func (h *AuthHandler) PostLogout(c *gin.Context) {
	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// GetCheck handles GET /v1/auth/check, returning the authenticated profile.
func (h *AuthHandler) GetCheck(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	user, err := h.store.UserByID(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("GetCheck: UserByID failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// PostProfile handles POST /v1/user/profile, replacing the avatar from an
// inline data URL.
func (h *AuthHandler) PostProfile(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req types.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "please add a profile picture"})
		return
	}

	if !strings.HasPrefix(req.Avatar, "data:image/") {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid file type"})
		return
	}

	url, err := h.uploads.Upload(req.Avatar)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid image payload"})
		return
	}

	user, err := h.store.UpdateAvatar(c.Request.Context(), userID, url)
	if err != nil {
		logger.Errorf("PostProfile: UpdateAvatar failed: %v", err)
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, user)
}
