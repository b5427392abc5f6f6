package localapi

import (
	"net/http"
	"strings"
)

func (s *Server) registerAuthRoutes() {
	s.mux.HandleFunc("/api/v1/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/v1/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/v1/auth/logout", s.handleLogout)
	s.mux.HandleFunc("/api/v1/auth/session", s.handleSession)
}

type credentialsForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var form credentialsForm
	if err := decodeJSON(r, &form); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid login payload")
		return
	}
	if strings.TrimSpace(form.Email) == "" || form.Password == "" {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "email and password are required")
		return
	}
	if err := s.deps.Auth.Login(r.Context(), form.Email, form.Password); err != nil {
		st := s.deps.Auth.Snapshot()
		respondError(w, http.StatusUnauthorized, "LOGIN_FAILED", st.Err)
		return
	}
	respondOK(w, sessionPayload(s))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var form credentialsForm
	if err := decodeJSON(r, &form); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid signup payload")
		return
	}
	if strings.TrimSpace(form.Email) == "" || form.Password == "" {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "email and password are required")
		return
	}
	if err := s.deps.Auth.Signup(r.Context(), form.Email, form.Password); err != nil {
		st := s.deps.Auth.Snapshot()
		respondError(w, http.StatusUnauthorized, "SIGNUP_FAILED", st.Err)
		return
	}
	respondOK(w, sessionPayload(s))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	s.deps.Auth.Logout()
	respondOK(w, sessionPayload(s))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	respondOK(w, sessionPayload(s))
}

func sessionPayload(s *Server) map[string]any {
	st := s.deps.Auth.Snapshot()
	out := map[string]any{
		"status":          string(st.Status),
		"isAuthenticated": st.IsAuthenticated(),
	}
	if st.Err != "" {
		out["error"] = st.Err
	}
	if st.IsAuthenticated() {
		out["user"] = map[string]any{
			"id":       st.CurrentUser.ID,
			"email":    st.CurrentUser.Email,
			"username": st.CurrentUser.Username,
		}
	}
	return out
}
