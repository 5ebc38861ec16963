package authhandler

import (
	"net/http"

	"github.com/tech-arch1tect/authrelay/openapi"
)

const bearerScheme = "bearerAuth"

// Document describes the routes registered by RegisterRoutes under prefix.
func Document(title, version, prefix string) *openapi.Document {
	doc := openapi.New(title, version).
		Description("Registration, login and refresh token rotation.").
		Tag("auth", "Token lifecycle").
		BearerAuth(bearerScheme, "Access token returned by register, login or refresh")

	doc.Operation(http.MethodPost, prefix+"/register").
		OperationID("register").
		Summary("Create a user and issue a token pair").
		Tags("auth").
		Body(RegisterRequest{}, "New account").
		Response(http.StatusCreated, TokenResponse{}, "User registered").
		Response(http.StatusBadRequest, ErrorResponse{}, "Invalid input or user already exists").
		Response(http.StatusTooManyRequests, ErrorResponse{}, "Rate limited").
		Build()

	doc.Operation(http.MethodPost, prefix+"/login").
		OperationID("login").
		Summary("Exchange credentials for a token pair").
		Tags("auth").
		Body(LoginRequest{}, "Credentials").
		Response(http.StatusOK, TokenResponse{}, "Login successful").
		Response(http.StatusBadRequest, ErrorResponse{}, "Invalid input").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Invalid credentials").
		Response(http.StatusNotFound, ErrorResponse{}, "User not found").
		Build()

	doc.Operation(http.MethodPost, prefix+"/refresh").
		OperationID("refresh").
		Summary("Rotate a refresh token").
		Description("The presented refresh token is consumed and cannot be used again.").
		Tags("auth").
		Body(RefreshRequest{}, "Refresh token").
		Response(http.StatusOK, TokenResponse{}, "New tokens issued").
		Response(http.StatusBadRequest, ErrorResponse{}, "Refresh token missing").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Invalid or expired refresh token").
		Response(http.StatusNotFound, ErrorResponse{}, "User not found").
		Build()

	doc.Operation(http.MethodPost, prefix+"/logout").
		OperationID("logout").
		Summary("Revoke a refresh token").
		Tags("auth").
		Body(RefreshRequest{}, "Refresh token").
		Response(http.StatusOK, MessageResponse{}, "Logged out").
		Response(http.StatusBadRequest, ErrorResponse{}, "Refresh token missing").
		Build()

	doc.Operation(http.MethodGet, prefix+"/me").
		OperationID("me").
		Summary("Current user").
		Tags("auth").
		Security(bearerScheme).
		Response(http.StatusOK, UserResponse{}, "Authenticated user").
		Response(http.StatusUnauthorized, ErrorResponse{}, "Missing or invalid access token").
		Response(http.StatusNotFound, ErrorResponse{}, "User not found").
		Build()

	return doc
}
