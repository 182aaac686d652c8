package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Asjal001/saferoute/internal/services/predict"
	"github.com/Asjal001/saferoute/internal/types"
)

// Predictor submits a sanitized route payload for assessment.
type Predictor interface {
	Assess(ctx context.Context, payload types.RoutePayload) (*types.PredictionResult, error)
}

// Locator resolves the user's current coordinates.
type Locator interface {
	Locate(ctx context.Context) (float64, float64, error)
}

// DefaultNoticeTTL is how long transient notices (field errors, geo
// success indicator) stay visible before auto-clearing.
const DefaultNoticeTTL = 3 * time.Second

var ErrUnknownField = errors.New("unknown field")

// OutcomeKind tags the request outcome union.
type OutcomeKind string

const (
	OutcomeEmpty   OutcomeKind = "empty"
	OutcomeResult  OutcomeKind = "result"
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is the mutually exclusive result-or-error of the last
// submission. Result and Message are never both set.
type Outcome struct {
	Kind    OutcomeKind             `json:"kind"`
	Result  *types.PredictionResult `json:"result,omitempty"`
	Message string                  `json:"message,omitempty"`
}

// State is a point-in-time snapshot of a session, safe to serialize.
type State struct {
	ID             string            `json:"id"`
	Query          types.RouteQuery  `json:"query"`
	UseCurrentTime bool              `json:"use_current_time"`
	Loading        bool              `json:"loading"`
	GeoStatus      types.GeoStatus   `json:"geo_status"`
	FieldErrors    map[string]string `json:"field_errors"`
	Outcome        Outcome           `json:"outcome"`
}

// Session is one user's route-assessment state: the form fields, the
// transient notices, the geolocation status and the outcome of the
// last submission. All mutation happens under a single mutex; the
// network calls in Locate and Submit run outside it so the user can
// keep editing while a request is in flight.
type Session struct {
	mu sync.Mutex

	id             string
	query          types.RouteQuery
	useCurrentTime bool
	loading        bool
	geoStatus      types.GeoStatus
	fieldErrors    map[string]string
	fieldTimers    map[string]*time.Timer
	geoTimer       *time.Timer
	outcome        Outcome
	lastActive     time.Time

	predictor Predictor
	locator   Locator
	noticeTTL time.Duration
	now       func() time.Time
}

// Options tunes session behaviour; zero values pick sane defaults.
type Options struct {
	NoticeTTL time.Duration
	Now       func() time.Time
}

// New creates a session with the form initialized from the wall clock.
func New(id string, predictor Predictor, locator Locator, opts Options) *Session {
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = DefaultNoticeTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		id:             id,
		useCurrentTime: true,
		geoStatus:      types.GeoIdle,
		fieldErrors:    make(map[string]string),
		fieldTimers:    make(map[string]*time.Timer),
		outcome:        Outcome{Kind: OutcomeEmpty},
		predictor:      predictor,
		locator:        locator,
		noticeTTL:      opts.NoticeTTL,
		now:            opts.Now,
	}

	now := s.now()
	s.query = types.RouteQuery{
		Hour:    strconv.Itoa(now.Hour()),
		Day:     strconv.Itoa(mondayIndex(now.Weekday())),
		Speed:   "40",
		Weather: types.WeatherClear,
	}
	s.lastActive = now

	return s
}

func (s *Session) ID() string { return s.id }

// LastActive reports when the session last handled an event.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SetField applies a field-change event. Unconstrained fields take the
// raw value; speed and hour are checked against their bounds and a
// violating edit is rejected, leaving the prior value intact and
// raising a transient field error instead. Any accepted edit clears
// the global error banner.
func (s *Session) SetField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	switch field {
	case "speed":
		if v, err := strconv.ParseFloat(value, 64); err == nil && v < 0 {
			s.raiseFieldError(field, "Speed cannot be negative")
			return nil
		}
		s.query.Speed = value
	case "hour":
		if v, err := strconv.Atoi(value); err == nil && (v < 0 || v > 23) {
			s.raiseFieldError(field, "Hour must be between 0 and 23")
			return nil
		}
		s.query.Hour = value
	case "day":
		s.query.Day = value
	case "lat":
		s.query.Lat = value
	case "lon":
		s.query.Lon = value
	case "road":
		s.query.Road = value
	case "weather":
		s.query.Weather = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	s.clearFailure()
	return nil
}

// SetUseCurrentTime flips the time-mode toggle. Switching into
// current-time mode snapshots the wall clock into hour/day; switching
// out leaves the last snapshot in place for hand-editing. Re-invoking
// with the current value does not refresh the snapshot.
func (s *Session) SetUseCurrentTime(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if on == s.useCurrentTime {
		return
	}
	s.useCurrentTime = on
	if on {
		now := s.now()
		s.query.Hour = strconv.Itoa(now.Hour())
		s.query.Day = strconv.Itoa(mondayIndex(now.Weekday()))
	}
}

// Locate acquires the current position and writes it into the form,
// tracking progress through GeoStatus. The success indicator auto
// resets to idle after the notice TTL; repeated invocations re-arm
// that timer. A failed acquisition leaves the error status up so the
// user notices, and manual coordinate entry stays available.
func (s *Session) Locate(ctx context.Context) error {
	s.mu.Lock()
	s.touch()
	if s.locator == nil {
		s.geoStatus = types.GeoError
		s.mu.Unlock()
		return errors.New("geolocation is not available")
	}
	s.geoStatus = types.GeoLoading
	locator := s.locator
	s.mu.Unlock()

	lat, lon, err := locator.Locate(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.geoStatus = types.GeoError
		return err
	}

	s.query.Lat = strconv.FormatFloat(lat, 'f', 4, 64)
	s.query.Lon = strconv.FormatFloat(lon, 'f', 4, 64)
	s.geoStatus = types.GeoSuccess
	s.armGeoReset()
	return nil
}

// Submit sanitizes the form and dispatches it to the prediction
// service. Sanitization failures short-circuit before any network
// call. A single attempt per invocation; if submissions overlap, the
// outcome reflects whichever response is applied last.
func (s *Session) Submit(ctx context.Context) {
	s.mu.Lock()
	s.touch()
	s.clearFailure()
	s.loading = true
	query := s.query
	s.mu.Unlock()

	payload, err := predict.Sanitize(query)
	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.outcome = Outcome{Kind: OutcomeFailure, Message: failureMessage(err)}
		s.mu.Unlock()
		return
	}

	result, err := s.predictor.Assess(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.outcome = Outcome{Kind: OutcomeFailure, Message: failureMessage(err)}
		return
	}
	s.outcome = Outcome{Kind: OutcomeResult, Result: result}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	fieldErrors := make(map[string]string, len(s.fieldErrors))
	for k, v := range s.fieldErrors {
		fieldErrors[k] = v
	}

	return State{
		ID:             s.id,
		Query:          s.query,
		UseCurrentTime: s.useCurrentTime,
		Loading:        s.loading,
		GeoStatus:      s.geoStatus,
		FieldErrors:    fieldErrors,
		Outcome:        s.outcome,
	}
}

// raiseFieldError records a transient notice for the field and arms
// its expiry. The timer is keyed by field and re-armed on every new
// error, so a stale timer from an earlier error can never clear a
// newer one. Caller holds mu.
func (s *Session) raiseFieldError(field, message string) {
	s.fieldErrors[field] = message

	if prev, ok := s.fieldTimers[field]; ok {
		prev.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(s.noticeTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.fieldTimers[field] == t {
			delete(s.fieldErrors, field)
			delete(s.fieldTimers, field)
		}
	})
	s.fieldTimers[field] = t
}

// armGeoReset schedules the success indicator back to idle. Re-armed
// per acquisition so each success gets its full display window.
// Caller holds mu.
func (s *Session) armGeoReset() {
	if s.geoTimer != nil {
		s.geoTimer.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(s.noticeTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.geoTimer == t && s.geoStatus == types.GeoSuccess {
			s.geoStatus = types.GeoIdle
		}
	})
	s.geoTimer = t
}

// clearFailure resets a failure outcome to empty. A retained result is
// left alone. Caller holds mu.
func (s *Session) clearFailure() {
	if s.outcome.Kind == OutcomeFailure {
		s.outcome = Outcome{Kind: OutcomeEmpty}
	}
}

func (s *Session) touch() {
	s.lastActive = s.now()
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, predict.ErrInvalidCoordinates):
		return predict.ErrInvalidCoordinates.Error()
	case errors.Is(err, predict.ErrInvalidSpeed):
		return predict.ErrInvalidSpeed.Error()
	case err.Error() == "":
		return predict.ErrServiceUnreachable.Error()
	default:
		return err.Error()
	}
}

// mondayIndex remaps Go's Sunday-first weekday to a Monday-first
// index, Monday=0 through Sunday=6.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}
