package http

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

type ProfileStore interface {
	SaveProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error)
}

// ProfileCacheInvalidator drops a cached profile after an admin update so the
// evaluation path sees it on the next lookup.
type ProfileCacheInvalidator interface {
	Invalidate(ref string)
}

type AuditSink interface {
	Emit(event domain.AuditEvent)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type escrowResponse struct {
	Escrow            *domain.EscrowRecord `json:"escrow"`
	WithdrawalAllowed bool                 `json:"withdrawal_allowed"`
}

type createProfileRequest struct {
	Ref          string `json:"profile_ref"`
	Status       string `json:"status"`
	PublicKeyB64 string `json:"public_key_b64"`
	SigAlg       string `json:"sig_alg"`
	Jurisdiction string `json:"jurisdiction"`
}

// handleVerify runs the full layer chain. The response is always a verdict
// document carrying either a signed envelope or a signed rejection; a bind
// failure flows through the chain as a malformed request so even that denial
// is signed.
func (s *Server) handleVerify(c *gin.Context) {
	var req domain.VerificationRequest
	bindErr := c.ShouldBindJSON(&req)

	verdict := s.chain.Evaluate(c.Request.Context(), req)

	status := http.StatusOK
	switch {
	case bindErr != nil:
		status = http.StatusBadRequest
	case !verdict.Approved:
		status = http.StatusForbidden
	}
	c.JSON(status, verdict)
}

func (s *Server) handleGetEscrow(c *gin.Context) {
	id := c.Param("escrow_id")
	rec, withdrawable, err := s.machine.Snapshot(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "unknown escrow")
			return
		}
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "escrow lookup failed")
		return
	}
	c.JSON(http.StatusOK, escrowResponse{Escrow: rec, WithdrawalAllowed: withdrawable})
}

func (s *Server) handleAdminCreateProfile(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	var body createProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "MALFORMED_REQUEST", "invalid profile body")
		return
	}
	if body.Ref == "" || body.PublicKeyB64 == "" {
		writeErrorCode(c, http.StatusBadRequest, "MALFORMED_REQUEST", "profile_ref and public_key_b64 are required")
		return
	}
	pubKey, err := base64.StdEncoding.DecodeString(body.PublicKeyB64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "MALFORMED_REQUEST", "public_key_b64 is not valid base64")
		return
	}
	status := domain.ProfileStatus(body.Status)
	if status == "" {
		status = domain.ProfileActive
	}
	sigAlg := body.SigAlg
	if sigAlg == "" {
		sigAlg = "ed25519"
	}

	profile, err := s.profiles.SaveProfile(c.Request.Context(), domain.Profile{
		Ref:          body.Ref,
		Status:       status,
		PublicKey:    pubKey,
		SigAlg:       sigAlg,
		Jurisdiction: body.Jurisdiction,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrMalformedRequest) {
			writeErrorCode(c, http.StatusBadRequest, "MALFORMED_REQUEST", "invalid profile")
			return
		}
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "profile persistence failed")
		return
	}
	if s.cache != nil {
		s.cache.Invalidate(profile.Ref)
	}
	if s.audit != nil {
		s.audit.Emit(domain.AuditEvent{
			EventType: domain.AuditEventProfileCreated,
			TargetID:  profile.Ref,
			Result:    domain.AuditResultSuccess,
			Payload:   map[string]any{"status": string(profile.Status)},
		})
	}
	c.JSON(http.StatusCreated, profile)
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	key := c.GetHeader("X-Admin-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		return false
	}
	return true
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
