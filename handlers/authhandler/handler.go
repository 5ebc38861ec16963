package authhandler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	jwtmiddleware "github.com/tech-arch1tect/authrelay/middleware/jwt"
	"github.com/tech-arch1tect/authrelay/services/identity"
	"github.com/tech-arch1tect/authrelay/services/refreshtoken"
	"github.com/tech-arch1tect/authrelay/services/users"
)

type Identity interface {
	Register(ctx context.Context, input identity.RegisterInput) (*identity.RegisterResult, error)
	Login(ctx context.Context, input identity.LoginInput) (*identity.LoginResult, error)
	Refresh(ctx context.Context, input identity.RefreshInput) (*identity.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (*users.User, error)
}

type Handler struct {
	identity Identity
	guard    echo.MiddlewareFunc
}

// NewHandler builds the /api/auth handlers. guard protects the routes that
// need a verified access token.
func NewHandler(id Identity, guard echo.MiddlewareFunc) *Handler {
	return &Handler{identity: id, guard: guard}
}

type RegisterRequest struct {
	Username string `json:"username" example:"jdoe"`
	Email    string `json:"email" example:"jdoe@example.com"`
	Password string `json:"password" example:"Secret123"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"jdoe@example.com"`
	Password string `json:"password" example:"Secret123"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId,omitempty"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type UserResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    *users.User `json:"user"`
}

type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me, h.guard)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	result, err := h.identity.Register(c.Request().Context(), identity.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Client:   clientInfo(c),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, TokenResponse{
		Success:      true,
		Message:      "User registered successfully",
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	})
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	result, err := h.identity.Login(c.Request().Context(), identity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Client:   clientInfo(c),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, TokenResponse{
		Success:      true,
		Message:      "Login successful",
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		UserID:       result.UserID,
	})
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	pair, err := h.identity.Refresh(c.Request().Context(), identity.RefreshInput{
		RefreshToken: req.RefreshToken,
		Client:       clientInfo(c),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, TokenResponse{
		Success:      true,
		Message:      "New tokens issued successfully.",
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) Logout(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if err := h.identity.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *Handler) Me(c echo.Context) error {
	user, err := h.identity.Me(c.Request().Context(), jwtmiddleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, UserResponse{Success: true, Message: "User retrieved successfully", User: user})
}

func clientInfo(c echo.Context) refreshtoken.ClientInfo {
	return refreshtoken.ClientInfo{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}
