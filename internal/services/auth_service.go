package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"vatelanka-driver/internal/models"

	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const identityToolkitURL = "https://identitytoolkit.googleapis.com"

// TokenVerifier checks Firebase ID tokens; *auth.Client satisfies it
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthService signs drivers in with email and password and reports auth state changes
type AuthService struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	verifier TokenVerifier
	log      *zap.Logger

	mu        sync.Mutex
	current   *models.Principal
	listeners map[int]func(*models.Principal)
	nextID    int
}

func NewAuthService(apiKey string, verifier TokenVerifier, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		apiKey:    apiKey,
		baseURL:   identityToolkitURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		verifier:  verifier,
		log:       log,
		listeners: make(map[int]func(*models.Principal)),
	}
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken string `json:"idToken"`
	Email   string `json:"email"`
	LocalID string `json:"localId"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SignIn authenticates against the Identity Toolkit password endpoint
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.Principal, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, errors.Wrap(err, "marshal sign-in request")
	}

	fullURL := fmt.Sprintf("%s/v1/accounts:signInWithPassword?key=%s", s.baseURL, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build sign-in request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(models.ErrAuthNetwork, err.Error())
	}
	defer resp.Body.Close()

	var result signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "decode sign-in response")
	}
	if result.Error != nil || resp.StatusCode != http.StatusOK {
		msg := ""
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, signInError(resp.StatusCode, msg)
	}

	principal := &models.Principal{
		UID:           result.LocalID,
		Email:         result.Email,
		EmailVerified: true,
		IDToken:       result.IDToken,
	}

	if s.verifier != nil {
		token, err := s.verifier.VerifyIDToken(ctx, result.IDToken)
		if err != nil {
			return nil, errors.Wrap(err, "verify id token")
		}
		principal.UID = token.UID
		if v, ok := token.Claims["email_verified"].(bool); ok {
			principal.EmailVerified = v
		}
	}

	s.setCurrent(principal)
	s.log.Info("🔐 Driver signed in", zap.String("uid", principal.UID))
	return principal, nil
}

func signInError(statusCode int, msg string) error {
	code := msg
	if i := strings.Index(code, " "); i > 0 {
		code = code[:i]
	}

	switch code {
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_EMAIL":
		return errors.Wrap(models.ErrInvalidCredentials, code)
	case "USER_DISABLED":
		return errors.Wrap(models.ErrAccountDisabled, code)
	}
	return errors.Errorf("sign-in failed (%d): %s", statusCode, msg)
}

// SignOut drops the current principal and notifies listeners
func (s *AuthService) SignOut(ctx context.Context) error {
	s.setCurrent(nil)
	s.log.Info("🔓 Driver signed out")
	return nil
}

// Restore sets the principal recovered from a persisted session, without notifying
func (s *AuthService) Restore(p *models.Principal) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
}

// Current returns the signed-in principal, if any
func (s *AuthService) Current() *models.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnAuthStateChanged registers cb and calls it right away with the current principal
func (s *AuthService) OnAuthStateChanged(cb func(*models.Principal)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = cb
	current := s.current
	s.mu.Unlock()

	cb(current)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *AuthService) setCurrent(p *models.Principal) {
	s.mu.Lock()
	s.current = p
	listeners := make([]func(*models.Principal), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(p)
	}
}
