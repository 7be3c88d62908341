package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"chmura-plikow/internal/auth"
	"chmura-plikow/internal/database"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
)

const (
	verifyTokenTTL  = 24 * time.Hour
	resetTokenTTL   = 30 * time.Minute
	refreshTokenTTL = 24 * time.Hour
)

type RegisterRequest struct {
	Email       string  `json:"email" example:"jan.kowalski@example.com"`
	Password    string  `json:"password" example:"password123"`
	DisplayName *string `json:"display_name" example:"Jan Kowalski"`
}

// @Summary      Register a new account
// @Description  Creates an unverified account and sends a verification link by e-mail. The account cannot log in until the link is used.
// @Tags         auth
// @Accept       json
// @Success      201  {string}  string "Created"
// @Failure      400  {string}  string "Invalid email or password too short"
// @Failure      409  {string}  string "Email already registered"
// @Router       /auth/register [post]
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		http.Error(w, "Invalid email address", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "Password must be at least 8 characters long", http.StatusBadRequest)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	verifyToken, err := auth.NewMailToken()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user, err := s.store.CreateUser(r.Context(), database.CreateUserParams{
		Email:             req.Email,
		PasswordHash:      passwordHash,
		DisplayName:       req.DisplayName,
		VerifyTokenHash:   auth.HashMailToken(verifyToken),
		VerifyTokenExpiry: time.Now().Add(verifyTokenTTL),
	})
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	displayName := user.Email
	if user.DisplayName != nil {
		displayName = *user.DisplayName
	}
	link := fmt.Sprintf("%s/api/v1/auth/verify?email=%s&token=%s", s.config.AppHost, user.Email, verifyToken)

	// Mail leci w tle, rejestracja nie czeka na serwer SMTP.
	go func() {
		if err := s.mailer.SendVerificationMail(user.Email, displayName, link); err != nil {
			s.log.Error().Err(err).Str("email", user.Email).Msg("Nie udało się wysłać maila weryfikacyjnego")
		}
	}()

	w.WriteHeader(http.StatusCreated)
}

// @Summary      Verify e-mail address
// @Description  Confirms account ownership using the token from the verification e-mail.
// @Tags         auth
// @Param        email  query  string  true  "Account e-mail"
// @Param        token  query  string  true  "Verification token"
// @Success      200  {string}  string "Email verified"
// @Failure      400  {string}  string "Missing parameters"
// @Failure      401  {string}  string "Invalid or expired token"
// @Router       /auth/verify [get]
func (s *Server) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	token := r.URL.Query().Get("token")
	if email == "" || token == "" {
		http.Error(w, "Email and token are required", http.StatusBadRequest)
		return
	}

	ok, err := s.store.MarkEmailVerified(r.Context(), email, auth.HashMailToken(token))
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Invalid or expired verification token", http.StatusUnauthorized)
		return
	}

	w.Write([]byte("Email verified. You can now log in."))
}

type LoginRequest struct {
	Email    string `json:"email" example:"jan.kowalski@example.com"`
	Password string `json:"password" example:"password123"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1c2VyX2lkIjoxLCJlbWFpbCI6ImphbkBleGFtcGxlLmNvbSIsImV4cCI6MTYxNjQyNjc2Nn0...."`
	RefreshToken string `json:"refresh_token" example:"V1StGXR8_Z5jdHi6B-myT78q_Z5jdHi6B-myT78q"`
}

// @Summary      Logs a user in
// @Description  Authenticates a verified user and returns a short-lived access token and a long-lived refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest   body      LoginRequest  true  "Login Credentials"
// @Success      200            {object}  TokenResponse
// @Failure      400            {string}  string "Invalid request body"
// @Failure      401            {string}  string "Invalid email or password"
// @Failure      403            {string}  string "Email not verified"
// @Router       /auth/login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if !user.IsVerified {
		http.Error(w, "Email address has not been verified", http.StatusForbidden)
		return
	}

	accessToken, err := auth.GenerateJWT(user, s.config.JWT.Secret)
	if err != nil {
		http.Error(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}

	generateID, err := nanoid.Standard(40)
	if err != nil {
		s.log.Error().Err(err).Msg("Nie udało się zainicjować generatora nanoid")
		http.Error(w, "Internal server error (token generation)", http.StatusInternalServerError)
		return
	}
	refreshToken := generateID()

	sessionParams := database.CreateSessionParams{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(refreshTokenTTL),
	}

	if err := s.store.CreateSession(r.Context(), sessionParams); err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("Nie udało się utworzyć sesji")
		http.Error(w, "Failed to process login session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" example:"V1StGXR8_Z5jdHi6B-myT78q_Z5jdHi6B-myT78q"`
}

// @Summary      Refresh access token
// @Description  Provides a new short-lived access token and a new refresh token in exchange for a valid, non-expired refresh token. Implements refresh token rotation.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        refreshTokenRequest   body      RefreshTokenRequest  true  "Refresh Token"
// @Success      200                   {object}  TokenResponse
// @Failure      400                   {string}  string "Invalid request body or missing token"
// @Failure      401                   {string}  string "Invalid or expired refresh token"
// @Router       /auth/refresh [post]
func (s *Server) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		http.Error(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	var newAccessToken, newRefreshToken string

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		user, err := q.GetUserByRefreshToken(r.Context(), req.RefreshToken)
		if err != nil {
			return err
		}
		if user == nil {
			return errors.New("invalid or expired refresh token")
		}

		if err := q.DeleteSessionByRefreshToken(r.Context(), req.RefreshToken); err != nil {
			return err
		}

		newAccessToken, err = auth.GenerateJWT(user, s.config.JWT.Secret)
		if err != nil {
			return err
		}

		generateID, _ := nanoid.Standard(40)
		newRefreshToken = generateID()
		sessionParams := database.CreateSessionParams{
			ID:           uuid.New(),
			UserID:       user.ID,
			RefreshToken: newRefreshToken,
			UserAgent:    r.UserAgent(),
			ClientIP:     r.RemoteAddr,
			ExpiresAt:    time.Now().Add(refreshTokenTTL),
		}
		return q.CreateSession(r.Context(), sessionParams)
	})

	if txErr != nil {
		if txErr.Error() == "invalid or expired refresh token" {
			http.Error(w, txErr.Error(), http.StatusUnauthorized)
		} else {
			s.log.Error().Err(txErr).Msg("Transakcja odświeżenia tokenu nie powiodła się")
			http.Error(w, "Failed to refresh token", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshToken,
	})
}

type ForgotPasswordRequest struct {
	Email string `json:"email" example:"jan.kowalski@example.com"`
}

// @Summary      Request a password reset
// @Description  Sends a password reset link to the given e-mail. Responds 200 whether or not the account exists.
// @Tags         auth
// @Accept       json
// @Success      200  {string}  string "OK"
// @Failure      400  {string}  string "Invalid request body"
// @Router       /auth/forgot-password [post]
func (s *Server) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Odpowiedź jest identyczna niezależnie od istnienia konta.
	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil || user == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	resetToken, err := auth.NewMailToken()
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := s.store.SetResetToken(r.Context(), user.ID, auth.HashMailToken(resetToken), time.Now().Add(resetTokenTTL)); err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("Nie udało się zapisać tokenu resetu hasła")
		w.WriteHeader(http.StatusOK)
		return
	}

	displayName := user.Email
	if user.DisplayName != nil {
		displayName = *user.DisplayName
	}
	link := fmt.Sprintf("%s/reset-password?email=%s&token=%s", s.config.AppHost, user.Email, resetToken)

	go func() {
		if err := s.mailer.SendPasswordResetMail(user.Email, displayName, link); err != nil {
			s.log.Error().Err(err).Str("email", user.Email).Msg("Nie udało się wysłać maila resetu hasła")
		}
	}()

	w.WriteHeader(http.StatusOK)
}

type ResetPasswordRequest struct {
	Email       string `json:"email" example:"jan.kowalski@example.com"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password" example:"newPassword456"`
}

// @Summary      Reset password
// @Description  Sets a new password using the token from the reset e-mail. All sessions of the account are terminated.
// @Tags         auth
// @Accept       json
// @Success      200  {string}  string "Password changed"
// @Failure      400  {string}  string "Invalid request body or password too short"
// @Failure      401  {string}  string "Invalid or expired token"
// @Router       /auth/reset-password [post]
func (s *Server) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < 8 {
		http.Error(w, "Password must be at least 8 characters long", http.StatusBadRequest)
		return
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var ok bool
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		ok, err = q.ResetPassword(r.Context(), email, auth.HashMailToken(req.Token), newHash)
		if err != nil || !ok {
			return err
		}
		user, err := q.GetUserByEmail(r.Context(), email)
		if err != nil || user == nil {
			return err
		}
		return q.DeleteAllSessionsForUser(r.Context(), user.ID)
	})
	if txErr != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Invalid or expired reset token", http.StatusUnauthorized)
		return
	}

	w.Write([]byte("Password changed. Please log in again."))
}
