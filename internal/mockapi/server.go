// Package mockapi is a development backend speaking the incident API wire
// protocol: JWT login and refresh, profiles, incidents and comments, all held
// in memory.
package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
	"github.com/dmitrijs2005/incidentdesk/internal/common"
)

const maxBodySize = 1 << 20

type Server struct {
	cfg    *Config
	store  *Store
	codec  *codec.Codec
	log    *zap.Logger
	secret []byte

	accessGen atomic.Int64
	logins    atomic.Int64
	refreshes atomic.Int64
}

func NewServer(cfg *Config, store *Store, log *zap.Logger) (*Server, error) {
	vocab, err := codec.ParseVocabulary(string(cfg.Vocabulary))
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		store:  store,
		codec:  codec.New(vocab),
		log:    log.With(zap.String("module", "mockapi")),
		secret: []byte(cfg.SecretKey),
	}, nil
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.accessGen.Add(1)
}

// Logins and Refreshes count successful token grants.
func (s *Server) Logins() int64    { return s.logins.Load() }
func (s *Server) Refreshes() int64 { return s.refreshes.Load() }

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(StructuredLogger(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", common.AuthorizationHeaderName, "Content-Type", common.RequestIDHeaderName},
		ExposedHeaders: []string{common.RequestIDHeaderName},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.respondDetail(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondDetail(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", r.Method))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post(common.PathToken, s.handleToken)
		r.Post(common.PathTokenRefresh, s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get(common.PathCurrentUser, s.handleProfile)
			r.Get(common.PathCurrentUserAlt, s.handleProfile)

			r.Get(common.PathIncidents, s.handleListIncidents)
			r.Post(common.PathIncidents, s.handleCreateIncident)
			r.Get(common.PathAssigned, s.handleAssigned)
			r.Get("/incidents/{id}/", s.handleGetIncident)
			r.Patch("/incidents/{id}/", s.handlePatchIncident)
			r.Get("/incidents/{id}/comments/", s.handleListComments)
			r.Post("/incidents/{id}/comments/", s.handleAddComment)
		})
	})

	return r
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodySize))
}

func (s *Server) respond(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) respondEncoded(w http.ResponseWriter, status int, body []byte, err error) {
	if err != nil {
		s.log.Error("encode response", zap.Error(err))
		s.respondDetail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	s.respond(w, status, body)
}

func (s *Server) respondDetail(w http.ResponseWriter, status int, detail string) {
	body, _ := json.Marshal(map[string]string{"detail": detail})
	s.respond(w, status, body)
}

func (s *Server) respondTokenInvalid(w http.ResponseWriter) {
	body, _ := json.Marshal(map[string]string{
		"detail": "Given token not valid for any token type",
		"code":   "token_not_valid",
	})
	s.respond(w, http.StatusUnauthorized, body)
}

func (s *Server) respondFields(w http.ResponseWriter, fields map[string][]string) {
	body, err := codec.EncodeValidationErrors(fields)
	s.respondEncoded(w, http.StatusBadRequest, body, err)
}

func blankFields(values map[string]string) map[string][]string {
	fields := map[string][]string{}
	for name, v := range values {
		if v == "" {
			fields[name] = []string{"This field may not be blank."}
		}
	}
	return fields
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.respondDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	username, password, err := codec.DecodeLoginRequest(body)
	if err != nil {
		s.respondDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if fields := blankFields(map[string]string{"username": username, "password": password}); len(fields) > 0 {
		s.respondFields(w, fields)
		return
	}

	user, ok := s.store.Authenticate(username, password)
	if !ok {
		s.log.Info("login rejected", zap.String("username", username))
		s.respondDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	access, err := GenerateToken(user.ID, TokenAccess, s.accessGen.Load(), s.secret, s.cfg.AccessTokenValidity)
	if err != nil {
		s.respondEncoded(w, 0, nil, err)
		return
	}
	refresh, err := GenerateToken(user.ID, TokenRefresh, 0, s.secret, s.cfg.RefreshTokenValidity)
	if err != nil {
		s.respondEncoded(w, 0, nil, err)
		return
	}

	var embedded *models.UserProfile
	if s.cfg.EmbedProfile {
		embedded = &user
	}
	resp, err := codec.EncodeLoginResponse(models.Credentials{AccessToken: access, RefreshToken: refresh}, embedded)
	s.logins.Add(1)
	s.respondEncoded(w, http.StatusOK, resp, err)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.respondDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	token, err := codec.DecodeRefreshRequest(body)
	if err != nil {
		s.respondDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if token == "" {
		s.respondFields(w, blankFields(map[string]string{"refresh": token}))
		return
	}

	claims, err := ParseToken(token, TokenRefresh, s.secret)
	if err != nil {
		s.respondTokenInvalid(w)
		return
	}
	if _, ok := s.store.User(claims.UserID); !ok {
		s.respondTokenInvalid(w)
		return
	}

	access, err := GenerateToken(claims.UserID, TokenAccess, s.accessGen.Load(), s.secret, s.cfg.AccessTokenValidity)
	if err != nil {
		s.respondEncoded(w, 0, nil, err)
		return
	}
	resp, err := codec.EncodeRefreshResponse(access)
	s.refreshes.Add(1)
	s.respondEncoded(w, http.StatusOK, resp, err)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	body, err := codec.EncodeProfile(userFrom(r.Context()))
	s.respondEncoded(w, http.StatusOK, body, err)
}

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	var keep func(models.Incident) bool
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := models.ParseStatus(raw)
		if err != nil {
			s.respondFields(w, map[string][]string{"status": {"Select a valid choice."}})
			return
		}
		keep = func(inc models.Incident) bool { return inc.Status == st }
	}

	body, err := s.codec.EncodeIncidents(s.store.Incidents(keep))
	s.respondEncoded(w, http.StatusOK, body, err)
}

func (s *Server) handleAssigned(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r.Context()).ID
	incs := s.store.Incidents(func(inc models.Incident) bool {
		return inc.AssignedTo != nil && *inc.AssignedTo == me
	})
	body, err := s.codec.EncodeIncidents(incs)
	s.respondEncoded(w, http.StatusOK, body, err)
}

func (s *Server) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.respondDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	draft, err := codec.DecodeIncidentDraft(body)
	if err != nil {
		s.respondDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if fields := draft.Validate(); len(fields) > 0 {
		s.respondFields(w, fields)
		return
	}

	inc := s.store.CreateIncident(draft, userFrom(r.Context()).ID)
	s.log.Info("incident created", zap.Int64("id", inc.ID))

	resp, err := s.codec.EncodeIncident(inc)
	s.respondEncoded(w, http.StatusCreated, resp, err)
}

// incidentID resolves the {id} URL parameter; a malformed id answers 404.
func (s *Server) incidentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondDetail(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := s.incidentID(w, r)
	if !ok {
		return
	}
	inc, err := s.store.Incident(id)
	if err != nil {
		s.respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	if inc.Comments, err = s.store.Comments(id); err != nil {
		s.respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	body, err := s.codec.EncodeIncident(inc)
	s.respondEncoded(w, http.StatusOK, body, err)
}

func (s *Server) handlePatchIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := s.incidentID(w, r)
	if !ok {
		return
	}
	if _, err := s.store.Incident(id); err != nil {
		s.respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	body, err := readBody(r)
	if err != nil {
		s.respondDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	upd, err := codec.DecodeIncidentUpdate(body)
	if err != nil {
		if errors.Is(err, models.ErrUnknownStatus) {
			s.respondFields(w, map[string][]string{"status": {"Select a valid choice."}})
			return
		}
		s.respondDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if upd.Status == nil && upd.AssignedTo == nil {
		s.respondFields(w, map[string][]string{"non_field_errors": {"No fields to update."}})
		return
	}

	if upd.AssignedTo != nil {
		if !userFrom(r.Context()).IsManager() {
			s.respondDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		if _, ok := s.store.User(*upd.AssignedTo); !ok {
			s.respondFields(w, map[string][]string{
				"assigned_to": {fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *upd.AssignedTo)},
			})
			return
		}
	}

	inc, err := s.store.UpdateIncident(id, upd)
	if err != nil {
		s.respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	s.log.Info("incident updated", zap.Int64("id", id), zap.String("status", string(inc.Status)))

	resp, err := s.codec.EncodeIncident(inc)
	s.respondEncoded(w, http.StatusOK, resp, err)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := s.incidentID(w, r)
	if !ok {
		return
	}
	comments, err := s.store.Comments(id)
	if err != nil {
		s.respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	body, err := s.codec.EncodeComments(comments)
	s.respondEncoded(w, http.StatusOK, body, err)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.incidentID(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.respondDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	text, err := codec.DecodeCommentText(body)
	if err != nil {
		s.respondFields(w, map[string][]string{"text": {"This field may not be blank."}})
		return
	}

	c, err := s.store.AddComment(id, userFrom(r.Context()), text)
	if err != nil {
		s.respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	resp, err := s.codec.EncodeComment(c)
	s.respondEncoded(w, http.StatusCreated, resp, err)
}
