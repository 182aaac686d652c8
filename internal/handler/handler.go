package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Asjal001/saferoute/internal/presenter"
	"github.com/Asjal001/saferoute/internal/response"
	"github.com/Asjal001/saferoute/internal/session"
	"github.com/Asjal001/saferoute/internal/types"
)

// AssessmentHandler exposes the route-assessment session operations
// over HTTP, one endpoint per form event.
type AssessmentHandler struct {
	store *session.Store
}

func NewAssessmentHandler(store *session.Store) *AssessmentHandler {
	return &AssessmentHandler{store: store}
}

// Presentation carries the render-time derivations for an outcome.
// Re-derived on every snapshot, never cached.
type Presentation struct {
	RiskClass      string `json:"risk_class,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	Likelihood     string `json:"likelihood,omitempty"`
}

// SessionResponse is a session snapshot plus its derived presentation.
type SessionResponse struct {
	State        session.State `json:"state"`
	Presentation Presentation  `json:"presentation"`
}

// Health returns a simple health check response
func Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// GetWeatherOptions returns the selectable weather conditions.
func GetWeatherOptions(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, types.WeatherOptions())
}

// CreateSession starts a new assessment session.
func (h *AssessmentHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.store.Create()
	slog.Debug("session created", "id", s.ID())
	response.JSON(w, http.StatusCreated, present(s.Snapshot()))
}

// GetSession returns the current session state.
func (h *AssessmentHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, present(s.Snapshot()))
}

// EditField applies a single field-change event.
func (h *AssessmentHandler) EditField(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var body types.FieldEditBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.ErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Field == "" {
		response.ErrorJSON(w, http.StatusBadRequest, "field is required")
		return
	}

	if err := s.SetField(body.Field, body.Value); err != nil {
		if errors.Is(err, session.ErrUnknownField) {
			response.ErrorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		response.ErrorJSON(w, http.StatusInternalServerError, "failed to apply edit")
		return
	}

	response.JSON(w, http.StatusOK, present(s.Snapshot()))
}

// Locate triggers geolocation for the session.
func (h *AssessmentHandler) Locate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if err := s.Locate(r.Context()); err != nil {
		// The geo status in the snapshot carries the indicator; the
		// request itself still succeeds so the form stays usable.
		slog.Debug("geolocation failed", "id", s.ID(), "error", err)
	}

	response.JSON(w, http.StatusOK, present(s.Snapshot()))
}

// SetTimeMode flips the current-time toggle.
func (h *AssessmentHandler) SetTimeMode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var body types.TimeModeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.ErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.SetUseCurrentTime(body.UseCurrentTime)
	response.JSON(w, http.StatusOK, present(s.Snapshot()))
}

// Assess submits the form to the prediction service and returns the
// outcome with its derived presentation.
func (h *AssessmentHandler) Assess(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	start := time.Now()
	s.Submit(r.Context())

	// Add response time header for debugging
	w.Header().Set("X-Response-Time", time.Since(start).String())

	response.JSON(w, http.StatusOK, present(s.Snapshot()))
}

func (h *AssessmentHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := mux.Vars(r)["id"]
	s, ok := h.store.Get(id)
	if !ok {
		response.ErrorJSON(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

func present(state session.State) SessionResponse {
	resp := SessionResponse{State: state}
	if state.Outcome.Kind == session.OutcomeResult && state.Outcome.Result != nil {
		label := state.Outcome.Result.RiskLabel
		resp.Presentation = Presentation{
			RiskClass:      presenter.RiskClass(label),
			Recommendation: presenter.Recommendation(label),
			Likelihood:     presenter.LikelihoodText(state.Outcome.Result),
		}
	}
	return resp
}
