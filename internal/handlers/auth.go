package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hello2himel/urochithi/internal/models"
	"github.com/hello2himel/urochithi/internal/services"
	pkghttp "github.com/hello2himel/urochithi/pkg/http"
)

// AuthServiceInterface defines the interface for the two-step auth flow
type AuthServiceInterface interface {
	VerifyStaticPIN(ctx context.Context, staticPin, recaptchaToken, identity string) (*services.Phase1Response, error)
	VerifyTimePIN(ctx context.Context, staticPin, timePin, identity string) (*services.Phase2Response, error)
}

// AuthHandler handles the two-step dashboard login endpoints
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Request DTOs

// StaticPinRequest is the phase-1 request body
type StaticPinRequest struct {
	StaticPin      string `json:"staticPin" validate:"required"`
	RecaptchaToken string `json:"recaptchaToken"`
}

// TimePinRequest is the phase-2 request body
type TimePinRequest struct {
	StaticPin string `json:"staticPin" validate:"required"`
	TimePin   string `json:"timePin" validate:"required"`
}

// Response DTOs. Success is only ever signaled by the positive flag;
// clients must never infer it from a missing error.

type staticPinResponse struct {
	Valid        bool   `json:"valid"`
	Error        string `json:"error,omitempty"`
	AttemptsLeft *int   `json:"attemptsLeft,omitempty"`
	RetryAfter   *int   `json:"retryAfter,omitempty"`
}

type timePinResponse struct {
	Authenticated bool   `json:"authenticated"`
	Token         string `json:"token,omitempty"`
	Error         string `json:"error,omitempty"`
	AttemptsLeft  *int   `json:"attemptsLeft,omitempty"`
	RetryAfter    *int   `json:"retryAfter,omitempty"`
}

// VerifyStaticPin handles phase 1 of the dashboard login
func (h *AuthHandler) VerifyStaticPin(w http.ResponseWriter, r *http.Request) {
	var req StaticPinRequest

	// A malformed body is a transport error: 400 with no rate-limit or
	// other security side effects, so decode and validate before touching
	// the service
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identity := pkghttp.ResolveIdentity(r)

	resp, err := h.service.VerifyStaticPIN(r.Context(), req.StaticPin, req.RecaptchaToken, identity)
	if err != nil {
		status, body := mapPhase1Error(w, err)
		pkghttp.WriteJSON(w, status, body)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, staticPinResponse{
		Valid:        true,
		AttemptsLeft: &resp.AttemptsLeft,
	})
}

// VerifyTimePin handles phase 2 of the dashboard login
func (h *AuthHandler) VerifyTimePin(w http.ResponseWriter, r *http.Request) {
	var req TimePinRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identity := pkghttp.ResolveIdentity(r)

	resp, err := h.service.VerifyTimePIN(r.Context(), req.StaticPin, req.TimePin, identity)
	if err != nil {
		status, body := mapPhase2Error(w, err)
		pkghttp.WriteJSON(w, status, body)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, timePinResponse{
		Authenticated: true,
		Token:         resp.Token,
	})
}

// mapPhase1Error converts service errors to the phase-1 wire shape. The 429
// path also sets the Retry-After header.
func mapPhase1Error(w http.ResponseWriter, err error) (int, staticPinResponse) {
	var rlErr *models.RateLimitError
	var credErr *models.CredentialError

	switch {
	case errors.As(err, &rlErr):
		w.Header().Set("Retry-After", strconv.Itoa(rlErr.RetryAfter))
		return http.StatusTooManyRequests, staticPinResponse{
			Error:      "Too many attempts. Please try again later.",
			RetryAfter: &rlErr.RetryAfter,
		}
	case errors.As(err, &credErr):
		return http.StatusUnauthorized, staticPinResponse{
			Error:        "Invalid PIN",
			AttemptsLeft: &credErr.AttemptsLeft,
		}
	case errors.Is(err, models.ErrBotRejected):
		return http.StatusForbidden, staticPinResponse{
			Error: "Verification failed. Please try again.",
		}
	case errors.Is(err, models.ErrServerConfig):
		return http.StatusInternalServerError, staticPinResponse{
			Error: "Server configuration error",
		}
	default:
		return http.StatusInternalServerError, staticPinResponse{
			Error: "Authentication error",
		}
	}
}

func mapPhase2Error(w http.ResponseWriter, err error) (int, timePinResponse) {
	var rlErr *models.RateLimitError
	var credErr *models.CredentialError

	switch {
	case errors.As(err, &rlErr):
		w.Header().Set("Retry-After", strconv.Itoa(rlErr.RetryAfter))
		return http.StatusTooManyRequests, timePinResponse{
			Error:      "Too many attempts. Please try again later.",
			RetryAfter: &rlErr.RetryAfter,
		}
	case errors.As(err, &credErr):
		return http.StatusUnauthorized, timePinResponse{
			Error:        "Invalid time-based code",
			AttemptsLeft: &credErr.AttemptsLeft,
		}
	case errors.Is(err, models.ErrServerConfig):
		return http.StatusInternalServerError, timePinResponse{
			Error: "Server configuration error",
		}
	default:
		return http.StatusInternalServerError, timePinResponse{
			Error: "Authentication error",
		}
	}
}
