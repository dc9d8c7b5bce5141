package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/config"
	"github.com/iliyamo/cafe-ordering/internal/model"
	"github.com/iliyamo/cafe-ordering/internal/repository"
	"github.com/iliyamo/cafe-ordering/internal/utils"
)

// AuthHandler bundles dependencies for account endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users repository.UserStore
	Log   *slog.Logger
}

func NewAuthHandler(cfg config.Config, u repository.UserStore, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{Cfg: cfg, Users: u, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userPart struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

func viewUser(u *model.User) userPart {
	return userPart{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role}
}

// Register: create a USER account and return a token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u := &model.User{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
		Role:  model.RoleUser,
	}
	if err := h.Users.Create(ctx, u, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return failMsg(c, http.StatusConflict, "User already exists")
		}
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return failMsg(c, http.StatusBadRequest, "password must be at most 72 bytes")
		}
		return fail(c, h.Log, err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.Log.Info("user: registered", slog.String("user_id", u.ID))
	return ok(c, http.StatusCreated, echo.Map{"token": access.Token, "expires": access.Exp, "user": viewUser(u)})
}

// Login: verify credentials and issue a fresh token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return fail(c, h.Log, err)
		}
		utils.VerifyPassword("", req.Password)
		return failMsg(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return failMsg(c, http.StatusUnauthorized, "Invalid credentials")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return ok(c, http.StatusOK, echo.Map{"token": access.Token, "expires": access.Exp, "user": viewUser(u)})
}
