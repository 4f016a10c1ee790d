package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"NewsLens/internal/domain"
	"NewsLens/internal/profile"
	"NewsLens/internal/usecase"
)

const healthTimeout = 2 * time.Second

// Profile body layouts accepted by PUT /users/{userID}/profile?format=.
const (
	formatStrict = ""
	formatLegacy = "legacy"
	formatTags   = "tags"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type weightsRequest struct {
	Importance float64 `json:"I" validate:"gte=0,lte=1"`
	Hype       float64 `json:"H" validate:"gte=0,lte=1"`
	Prominence float64 `json:"P" validate:"gte=0,lte=1"`
	Novelty    float64 `json:"N" validate:"gte=0,lte=1"`
	Quality    float64 `json:"Q" validate:"gte=0,lte=1"`
}

type voteRequest struct {
	Vote *int `json:"vote"`
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

type digestResponse struct {
	UserID int64                 `json:"user_id"`
	Items  []domain.DeliveryItem `json:"items"`
}

type resolveResponse struct {
	Surface    string  `json:"surface"`
	Canonical  string  `json:"canonical"`
	Family     string  `json:"family"`
	Confidence float64 `json:"confidence"`
}

type userResponse struct {
	UserID  int64               `json:"user_id"`
	Paused  bool                `json:"paused"`
	Weights domain.ScoreWeights `json:"weights"`
	Profile json.RawMessage     `json:"profile"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Health.Ping(ctx); err != nil {
			s.respondError(w, http.StatusServiceUnavailable, "UNHEALTHY", "store unavailable", err)
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"state": "ok"})
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var in usecase.ItemInput
	if err := decodeBody(w, r, &in); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error(), nil)
		return
	}

	item, err := s.deps.Catalog.AddItem(r.Context(), in)
	if errors.Is(err, usecase.ErrInvalidItem) {
		s.respondError(w, http.StatusUnprocessableEntity, "INVALID_ITEM", err.Error(), nil)
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "STORE_ERROR", "could not store item", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"item_id": item.ID})
}

func (s *Server) resolveTopic(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		s.respondError(w, http.StatusBadRequest, "MISSING_TAG", "query parameter tag is required", nil)
		return
	}
	res := s.deps.Topics.Resolve(r.Context(), tag)
	s.respondJSON(w, http.StatusOK, resolveResponse{
		Surface:    tag,
		Canonical:  res.Canonical,
		Family:     res.Family,
		Confidence: res.Confidence,
	})
}

func (s *Server) digest(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	items, err := s.deps.Ranking.Digest(r.Context(), userID, intQuery(r, "limit", 0))
	switch {
	case errors.Is(err, domain.ErrUserPaused):
		s.respondError(w, http.StatusConflict, "USER_PAUSED", "digests are paused for this user", nil)
		return
	case errors.Is(err, domain.ErrLimitTooLarge):
		s.respondError(w, http.StatusBadRequest, "INVALID_LIMIT", err.Error(), nil)
		return
	case err != nil:
		s.respondError(w, http.StatusInternalServerError, "RANKING_ERROR", "could not rank items", err)
		return
	}
	s.respondJSON(w, http.StatusOK, digestResponse{UserID: userID, Items: items})
}

func (s *Server) vote(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req voteRequest
	if err := decodeBody(w, r, &req); err != nil || req.Vote == nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_JSON", `body must be {"vote": -1|0|1}`, nil)
		return
	}
	s.recordVote(w, r, userID, domain.Vote(*req.Vote))
}

func (s *Server) undoVote(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	s.recordVote(w, r, userID, domain.VoteNeutral)
}

func (s *Server) recordVote(w http.ResponseWriter, r *http.Request, userID int64, vote domain.Vote) {
	err := s.deps.Feedback.Vote(r.Context(), userID, chi.URLParam(r, "itemID"), vote)
	switch {
	case errors.Is(err, domain.ErrInvalidVote):
		s.respondError(w, http.StatusBadRequest, "INVALID_VOTE", err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "item not found", nil)
	case err != nil:
		s.respondError(w, http.StatusInternalServerError, "STORE_ERROR", "could not record vote", err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	u, err := s.deps.Profiles.Get(r.Context(), userID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "STORE_ERROR", "could not load user", err)
		return
	}
	raw, err := profile.Encode(u.Interests)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "ENCODE_ERROR", "could not encode profile", err)
		return
	}
	s.respondJSON(w, http.StatusOK, userResponse{
		UserID:  u.UserID,
		Paused:  u.Paused,
		Weights: u.Weights,
		Profile: raw,
	})
}

func (s *Server) setProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	var in domain.InterestProfile
	switch format := r.URL.Query().Get("format"); format {
	case formatStrict:
		in, err = profile.Parse(body)
	case formatLegacy:
		in, err = profile.FromLegacyInterests(body)
	case formatTags:
		var req tagsRequest
		if err = json.Unmarshal(body, &req); err == nil {
			in = profile.FromTagList(req.Tags)
		}
	default:
		s.respondError(w, http.StatusBadRequest, "UNKNOWN_FORMAT", "format must be legacy or tags", nil)
		return
	}
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "INVALID_PROFILE", err.Error(), nil)
		return
	}

	out, err := s.deps.Profiles.SetInterests(r.Context(), userID, in)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "STORE_ERROR", "could not store profile", err)
		return
	}
	raw, err := profile.Encode(out)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "ENCODE_ERROR", "could not encode profile", err)
		return
	}
	s.respondJSON(w, http.StatusOK, json.RawMessage(raw))
}

func (s *Server) clearProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Profiles.ClearInterests(r.Context(), userID); err != nil {
		s.respondError(w, http.StatusInternalServerError, "STORE_ERROR", "could not clear profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setPaused(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req pauseRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_JSON", `body must be {"paused": true|false}`, nil)
		return
	}
	if err := s.deps.Profiles.SetPaused(r.Context(), userID, req.Paused); err != nil {
		s.respondError(w, http.StatusInternalServerError, "STORE_ERROR", "could not update user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setWeights(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req weightsRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_JSON", err.Error(), nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "INVALID_WEIGHTS", "weights must lie in [0,1]", nil)
		return
	}
	weights := domain.ScoreWeights(req)
	if err := s.deps.Profiles.SetWeights(r.Context(), userID, weights); err != nil {
		s.respondError(w, http.StatusInternalServerError, "STORE_ERROR", "could not update user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := userIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "user id must be an integer", nil)
		return 0, false
	}
	return id, true
}
