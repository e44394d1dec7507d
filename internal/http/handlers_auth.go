package http

import (
	"context"
	"errors"
	"net/http"

	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/log"
)

type identityKey struct{}

// identityFrom returns the verified caller stored by requireAuth.
func identityFrom(ctx context.Context) auth.Identity {
	id, _ := ctx.Value(identityKey{}).(auth.Identity)
	return id
}

// requireAuth verifies the bearer token. A missing token is 401, any
// other verification failure is 403.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.auth.Verify(bearerToken(r))
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected token",
				log.FieldOperation, log.OpVerify,
				log.FieldError, err,
				"expired", auth.IsExpired(err))
			errorResponse(err).Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(msgBadJSON).Write(w)
		return
	}

	if _, err := s.auth.Register(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, core.ErrEmptyUsername) || errors.Is(err, core.ErrEmptyPassword) {
			BadRequestError(msgCredentialsNeeded).Write(w)
			return
		}
		s.fail(w, r, log.OpRegister, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message(msgRegistered).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(msgBadJSON).Write(w)
		return
	}

	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, log.OpLogin, err)
		return
	}
	NewJSONResponse().Body(map[string]string{"token": token}).Write(w)
}

// fail writes the mapped error response. Unexpected errors are logged with
// their detail, which never reaches the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := errorResponse(err)
	if resp.statusCode >= http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithUser(identityFrom(r.Context()).UserID).WithError(err, log.ErrorTypeInternal))
	}
	resp.Write(w)
}
