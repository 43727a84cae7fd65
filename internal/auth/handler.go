package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/vendazap/platform/pkg/logging"
)

// Handler handles HTTP requests for authentication.
type Handler struct {
	repo       Repository
	tokens     *TokenManager
	bcryptCost int
	logger     *logging.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(repo Repository, tokens *TokenManager, bcryptCost int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Handler{repo: repo, tokens: tokens, bcryptCost: bcryptCost, logger: logger}
}

// Signup handles POST /auth/signup requests.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	user, err := h.repo.Create(r.Context(), &User{
		FullName:       req.FullName,
		Email:          req.Email,
		HashedPassword: string(hashed),
		WhatsAppNumber: req.WhatsAppNumber,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create user", "error", err)
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user created", "id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusCreated, user)
}

// TokenResponse is the login response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login handles POST /auth/login requests. It accepts the OAuth2
// password-grant form fields (username/password) as well as JSON.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	email, password, ok := credentials(r)
	if !ok {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.repo.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, ErrInvalidCredentials.Error(), http.StatusUnauthorized)
			return
		}
		h.logger.Error("failed to load user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !user.IsActive {
		http.Error(w, "inactive user", http.StatusForbidden)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		http.Error(w, ErrInvalidCredentials.Error(), http.StatusUnauthorized)
		return
	}

	token, err := h.tokens.Issue(user.Email)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me handles GET /auth/me requests.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func credentials(r *http.Request) (email, password string, ok bool) {
	if r.Header.Get("Content-Type") == "application/json" {
		var body struct {
			Email    string `json:"email"`
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", "", false
		}
		email = body.Email
		if email == "" {
			email = body.Username
		}
		return email, body.Password, email != "" && body.Password != ""
	}
	if err := r.ParseForm(); err != nil {
		return "", "", false
	}
	email = r.FormValue("username")
	password = r.FormValue("password")
	return email, password, email != "" && password != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
