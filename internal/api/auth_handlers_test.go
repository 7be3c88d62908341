package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPI_Register_And_VerifyGate(t *testing.T) {
	ctx := context.Background()

	// Rejestracja
	payload := RegisterRequest{Email: "rejestracja@test.pl", Password: "haslo12345"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.RegisterHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	// Konto istnieje, ale jest niezweryfikowane
	user, err := testServer.store.GetUserByEmail(ctx, "rejestracja@test.pl")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.False(t, user.IsVerified)

	// Login przed weryfikacją odbija się z 403
	loginBody, _ := json.Marshal(LoginRequest{Email: "rejestracja@test.pl", Password: "haslo12345"})
	req = httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(loginBody))
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.LoginHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAPI_Register_DuplicateEmail(t *testing.T) {
	payload := RegisterRequest{Email: "zajety@test.pl", Password: "haslo12345"}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.RegisterHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	req = httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.RegisterHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestAPI_Register_WeakPassword(t *testing.T) {
	payload := RegisterRequest{Email: "krotkie@test.pl", Password: "krotkie"}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.RegisterHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_Login_And_Refresh(t *testing.T) {
	// Konto z TestMain jest zweryfikowane
	loginBody, _ := json.Marshal(LoginRequest{Email: "api_test_user@test.pl", Password: "password"})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(loginBody))
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.LoginHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var tokens TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tokens))
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	// Odświeżenie rotuje refresh token
	refreshBody, _ := json.Marshal(RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	req = httptest.NewRequest("POST", "/api/v1/auth/refresh", bytes.NewReader(refreshBody))
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.RefreshTokenHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var rotated TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rotated))
	require.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// Stary refresh token jest już bezużyteczny
	req = httptest.NewRequest("POST", "/api/v1/auth/refresh", bytes.NewReader(refreshBody))
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.RefreshTokenHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPI_Login_WrongPassword(t *testing.T) {
	loginBody, _ := json.Marshal(LoginRequest{Email: "api_test_user@test.pl", Password: "zle_haslo"})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(loginBody))
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.LoginHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPI_ForgotPassword_UnknownEmail(t *testing.T) {
	// Odpowiedź nie zdradza, czy konto istnieje
	body, _ := json.Marshal(ForgotPasswordRequest{Email: "nie_istnieje@test.pl"})
	req := httptest.NewRequest("POST", "/api/v1/auth/forgot-password", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.ForgotPasswordHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
