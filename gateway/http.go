package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goerrors "errors"

	"echoforge/errors"
	"echoforge/services"
)

const shutdownGrace = 5 * time.Second

// Server is the HTTP front of the gateway, run under the supervisor. It
// serves the websocket endpoint plus the small auth surface needed to
// obtain a token in the first place.
type Server struct {
	log  *slog.Logger
	addr string
	gw   *Gateway
	auth services.IAuthService
	api  *API
}

func NewServer(log *slog.Logger, addr string, gw *Gateway, auth services.IAuthService, api *API) *Server {
	return &Server{log: log, addr: addr, gw: gw, auth: auth, api: api}
}

// Run blocks until the context is canceled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.gw.HandleWS)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.api.register(mux)

	server := &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Gateway listening", "addr", s.addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.gw.CloseAll()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("gateway shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if goerrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	token, err := s.auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		status := http.StatusBadRequest
		if goerrors.Is(err, errors.ErrUserAlreadyExists) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": string(token)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	token, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		// Always the same answer, never a hint which part was wrong.
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": errors.ErrInvalidCredentials.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": string(token)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
