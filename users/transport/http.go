package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/taskdata/taskd"
	"github.com/taskdata/taskd/jsonweb"
	"github.com/taskdata/taskd/kit/platform/errors"
	kithttp "github.com/taskdata/taskd/kit/transport/http"
	"go.uber.org/zap"
)

const prefixAuth = "/auth"

// AuthHandler serves registration and login. Login is the only place a
// bearer token is minted; everything else just verifies them.
type AuthHandler struct {
	chi.Router

	api *kithttp.API
	log *zap.Logger

	userSvc       taskd.UserService
	signer        *jsonweb.TokenSigner
	sessionLength time.Duration
}

// NewAuthHandler returns a new instance of AuthHandler.
func NewAuthHandler(log *zap.Logger, userSvc taskd.UserService, signer *jsonweb.TokenSigner, sessionLength time.Duration) *AuthHandler {
	h := &AuthHandler{
		api: kithttp.NewAPI(kithttp.WithLog(log)),
		log: log,

		userSvc:       userSvc,
		signer:        signer,
		sessionLength: sessionLength,
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.RealIP,
	)
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)

	h.Router = r

	return h
}

func (h *AuthHandler) Prefix() string {
	return prefixAuth
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var create taskd.UserCreate
	if err := h.api.DecodeJSON(r.Body, &create); err != nil {
		h.api.Err(w, r, err)
		return
	}

	user, err := h.userSvc.CreateUser(r.Context(), create)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	h.api.Respond(w, r, http.StatusCreated, kithttp.Envelope{
		Success: true,
		Message: "user registered successfully",
		Data:    user,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.api.DecodeJSON(r.Body, &req); err != nil {
		h.api.Err(w, r, err)
		return
	}

	if req.Email == "" || req.Password == "" {
		h.api.Err(w, r, &errors.Error{
			Code: errors.EInvalid,
			Msg:  "email and password are required",
		})
		return
	}

	user, err := h.userSvc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.api.Err(w, r, err)
		return
	}

	token, err := h.signer.Sign(user.ID, h.sessionLength)
	if err != nil {
		h.api.Err(w, r, &errors.Error{
			Code: errors.EInternal,
			Op:   "users.handleLogin",
			Err:  err,
		})
		return
	}

	h.api.Respond(w, r, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
