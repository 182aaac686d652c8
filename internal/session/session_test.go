package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Asjal001/saferoute/internal/types"
)

type fakePredictor struct {
	mu       sync.Mutex
	calls    int
	payloads []types.RoutePayload

	result *types.PredictionResult
	err    error

	// Per-road overrides for overlapping-submission tests.
	delays  map[string]time.Duration
	results map[string]*types.PredictionResult
}

func (f *fakePredictor) Assess(ctx context.Context, p types.RoutePayload) (*types.PredictionResult, error) {
	f.mu.Lock()
	f.calls++
	f.payloads = append(f.payloads, p)
	delay := f.delays[p.Road]
	result := f.result
	if r, ok := f.results[p.Road]; ok {
		result = r
	}
	err := f.err
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return result, err
}

func (f *fakePredictor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLocator struct {
	lat, lon float64
	err      error
}

func (f *fakeLocator) Locate(ctx context.Context) (float64, float64, error) {
	return f.lat, f.lon, f.err
}

// sunday is a fixed Sunday 15:00 used wherever tests need a known clock.
var sunday = time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, predictor Predictor, locator Locator, ttl time.Duration) *Session {
	t.Helper()
	if predictor == nil {
		predictor = &fakePredictor{}
	}
	return New("test-session", predictor, locator, Options{
		NoticeTTL: ttl,
		Now:       func() time.Time { return sunday },
	})
}

func TestSetFieldSpeedValidation(t *testing.T) {
	s := newTestSession(t, nil, nil, 40*time.Millisecond)

	if err := s.SetField("speed", "-5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := s.Snapshot()
	if state.Query.Speed != "40" {
		t.Errorf("expected speed to keep prior value '40', got '%s'", state.Query.Speed)
	}
	if state.FieldErrors["speed"] == "" {
		t.Error("expected a transient speed field error")
	}

	// The notice self-expires after the TTL.
	time.Sleep(100 * time.Millisecond)
	state = s.Snapshot()
	if _, ok := state.FieldErrors["speed"]; ok {
		t.Error("expected speed field error to have expired")
	}

	// A valid edit goes through.
	if err := s.SetField("speed", "55.5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Snapshot().Query.Speed; got != "55.5" {
		t.Errorf("expected speed '55.5', got '%s'", got)
	}
}

func TestSetFieldHourValidation(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		accepted bool
	}{
		{"hour above range rejected", "24", false},
		{"negative hour rejected", "-1", false},
		{"midnight accepted", "0", true},
		{"last hour accepted", "23", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, nil, nil, time.Second)
			prior := s.Snapshot().Query.Hour

			if err := s.SetField("hour", tt.value); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			state := s.Snapshot()
			if tt.accepted {
				if state.Query.Hour != tt.value {
					t.Errorf("expected hour '%s', got '%s'", tt.value, state.Query.Hour)
				}
				if _, ok := state.FieldErrors["hour"]; ok {
					t.Error("expected no field error for a valid hour")
				}
			} else {
				if state.Query.Hour != prior {
					t.Errorf("expected hour to keep prior value '%s', got '%s'", prior, state.Query.Hour)
				}
				if state.FieldErrors["hour"] == "" {
					t.Error("expected a transient hour field error")
				}
			}
		})
	}
}

func TestSetFieldErrorReArmsTimer(t *testing.T) {
	s := newTestSession(t, nil, nil, 80*time.Millisecond)

	s.SetField("speed", "-1")
	time.Sleep(50 * time.Millisecond)
	s.SetField("speed", "-2")

	// The first notice's timer would fire around 80ms; the re-armed
	// one protects the newer error until ~130ms.
	time.Sleep(50 * time.Millisecond)
	if s.Snapshot().FieldErrors["speed"] == "" {
		t.Error("expected re-armed field error to still be visible")
	}

	time.Sleep(80 * time.Millisecond)
	if _, ok := s.Snapshot().FieldErrors["speed"]; ok {
		t.Error("expected field error to expire after the re-armed window")
	}
}

func TestSetFieldUnknown(t *testing.T) {
	s := newTestSession(t, nil, nil, time.Second)
	if err := s.SetField("bogus", "1"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestSuccessfulEditClearsGlobalError(t *testing.T) {
	predictor := &fakePredictor{}
	s := newTestSession(t, predictor, nil, time.Second)

	// Default lat/lon are empty, so this fails sanitization.
	s.Submit(context.Background())
	if s.Snapshot().Outcome.Kind != OutcomeFailure {
		t.Fatal("expected a failure outcome")
	}

	s.SetField("road", "N1")
	if got := s.Snapshot().Outcome.Kind; got != OutcomeEmpty {
		t.Errorf("expected edit to clear the failure, got outcome %q", got)
	}
}

func TestTimeModeSnapshot(t *testing.T) {
	s := newTestSession(t, nil, nil, time.Second)

	// Default initialization snapshots the wall clock: Sunday 15:00
	// maps to day 6 in the Monday-first convention.
	state := s.Snapshot()
	if state.Query.Hour != "15" || state.Query.Day != "6" {
		t.Fatalf("expected initial hour '15' day '6', got '%s'/'%s'", state.Query.Hour, state.Query.Day)
	}

	// Switching to manual leaves the values for hand-editing.
	s.SetUseCurrentTime(false)
	s.SetField("hour", "5")
	s.SetField("day", "2")

	// Switching back re-snapshots the clock.
	s.SetUseCurrentTime(true)
	state = s.Snapshot()
	if state.Query.Hour != "15" || state.Query.Day != "6" {
		t.Errorf("expected snapshot hour '15' day '6', got '%s'/'%s'", state.Query.Hour, state.Query.Day)
	}
}

func TestTimeModeRedundantToggleDoesNotResnapshot(t *testing.T) {
	clock := sunday
	s := New("test-session", &fakePredictor{}, nil, Options{
		NoticeTTL: time.Second,
		Now:       func() time.Time { return clock },
	})

	// Advance the clock; re-invoking with the flag already set must
	// not refresh the snapshot.
	clock = clock.Add(3 * time.Hour)
	s.SetUseCurrentTime(true)

	if got := s.Snapshot().Query.Hour; got != "15" {
		t.Errorf("expected hour to stay '15', got '%s'", got)
	}

	// A full off/on cycle picks up the new clock.
	s.SetUseCurrentTime(false)
	s.SetUseCurrentTime(true)
	if got := s.Snapshot().Query.Hour; got != "18" {
		t.Errorf("expected hour '18' after re-toggle, got '%s'", got)
	}
}

func TestSubmitInvalidCoordinatesShortCircuits(t *testing.T) {
	predictor := &fakePredictor{}
	s := newTestSession(t, predictor, nil, time.Second)

	s.SetField("lat", "abc")
	s.SetField("lon", "90.4125")
	s.Submit(context.Background())

	state := s.Snapshot()
	if state.Outcome.Kind != OutcomeFailure {
		t.Fatalf("expected failure outcome, got %q", state.Outcome.Kind)
	}
	if state.Outcome.Message != "please enter valid coordinates" {
		t.Errorf("unexpected failure message: %q", state.Outcome.Message)
	}
	if state.Loading {
		t.Error("expected loading to be false after short-circuit")
	}
	if predictor.callCount() != 0 {
		t.Errorf("expected no network call, got %d", predictor.callCount())
	}
}

func TestSubmitInvalidSpeedShortCircuits(t *testing.T) {
	predictor := &fakePredictor{}
	s := newTestSession(t, predictor, nil, time.Second)

	s.SetField("lat", "23.8103")
	s.SetField("lon", "90.4125")
	s.SetField("speed", "fast") // unparseable, caught at submission
	s.Submit(context.Background())

	state := s.Snapshot()
	if state.Outcome.Message != "please enter a valid speed" {
		t.Errorf("unexpected failure message: %q", state.Outcome.Message)
	}
	if predictor.callCount() != 0 {
		t.Errorf("expected no network call, got %d", predictor.callCount())
	}
}

func TestSubmitSuccess(t *testing.T) {
	predictor := &fakePredictor{
		result: &types.PredictionResult{
			VehicleCount:       120,
			TrafficDensity:     "High",
			AccidentLikelihood: 73,
			RiskLabel:          "Danger",
		},
	}
	s := newTestSession(t, predictor, nil, time.Second)

	s.SetField("lat", "23.8103")
	s.SetField("lon", "90.4125")
	s.SetField("speed", "42.5")
	s.SetField("weather", types.WeatherRain)
	s.Submit(context.Background())

	state := s.Snapshot()
	if state.Loading {
		t.Error("expected loading to return to false")
	}
	if state.Outcome.Kind != OutcomeResult {
		t.Fatalf("expected result outcome, got %q", state.Outcome.Kind)
	}
	if state.Outcome.Result.RiskLabel != "Danger" {
		t.Errorf("expected risk label 'Danger', got '%s'", state.Outcome.Result.RiskLabel)
	}

	// The dispatched payload carries the sanitized form values.
	payload := predictor.payloads[0]
	if payload.Lat != 23.8103 || payload.Lon != 90.4125 {
		t.Errorf("unexpected coordinates in payload: %v, %v", payload.Lat, payload.Lon)
	}
	if payload.Speed != 42.5 {
		t.Errorf("expected speed 42.5, got %v", payload.Speed)
	}
	if payload.Hour != 15 || payload.Day != 6 {
		t.Errorf("expected hour 15 day 6, got %d/%d", payload.Hour, payload.Day)
	}
	if payload.Weather != types.WeatherRain {
		t.Errorf("expected weather 'Rain', got '%s'", payload.Weather)
	}
}

func TestSubmitFailureStoresMessage(t *testing.T) {
	predictor := &fakePredictor{err: errors.New("model is warming up")}
	s := newTestSession(t, predictor, nil, time.Second)

	s.SetField("lat", "23.8103")
	s.SetField("lon", "90.4125")
	s.Submit(context.Background())

	state := s.Snapshot()
	if state.Outcome.Kind != OutcomeFailure {
		t.Fatalf("expected failure outcome, got %q", state.Outcome.Kind)
	}
	if state.Outcome.Message != "model is warming up" {
		t.Errorf("unexpected failure message: %q", state.Outcome.Message)
	}

	// The next attempt clears the error before dispatch.
	predictor.mu.Lock()
	predictor.err = nil
	predictor.result = &types.PredictionResult{RiskLabel: "Safe"}
	predictor.mu.Unlock()

	s.Submit(context.Background())
	if got := s.Snapshot().Outcome.Kind; got != OutcomeResult {
		t.Errorf("expected result after retry, got %q", got)
	}
}

func TestOverlappingSubmissionsLastAppliedWins(t *testing.T) {
	slow := &types.PredictionResult{RiskLabel: "Safe"}
	fast := &types.PredictionResult{RiskLabel: "Caution"}
	predictor := &fakePredictor{
		delays:  map[string]time.Duration{"slow-road": 120 * time.Millisecond},
		results: map[string]*types.PredictionResult{"slow-road": slow, "fast-road": fast},
	}
	s := newTestSession(t, predictor, nil, time.Second)

	s.SetField("lat", "23.8103")
	s.SetField("lon", "90.4125")
	s.SetField("road", "slow-road")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Submit(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	s.SetField("road", "fast-road")
	s.Submit(context.Background())
	wg.Wait()

	// The slow first response lands after the fast second one, so the
	// state reflects the first request even though it was issued first.
	state := s.Snapshot()
	if state.Outcome.Result == nil || state.Outcome.Result.RiskLabel != "Safe" {
		t.Errorf("expected last-applied response to win, got %+v", state.Outcome)
	}
}

func TestLocateSuccess(t *testing.T) {
	locator := &fakeLocator{lat: 23.8103, lon: 90.4125}
	s := newTestSession(t, nil, locator, 60*time.Millisecond)

	if err := s.Locate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := s.Snapshot()
	if state.Query.Lat != "23.8103" || state.Query.Lon != "90.4125" {
		t.Errorf("expected coordinates written to form, got '%s'/'%s'", state.Query.Lat, state.Query.Lon)
	}
	if state.GeoStatus != types.GeoSuccess {
		t.Errorf("expected geo status success, got %q", state.GeoStatus)
	}

	time.Sleep(120 * time.Millisecond)
	if got := s.Snapshot().GeoStatus; got != types.GeoIdle {
		t.Errorf("expected geo status to reset to idle, got %q", got)
	}
}

func TestLocateRepeatedReArmsReset(t *testing.T) {
	locator := &fakeLocator{lat: 1, lon: 2}
	s := newTestSession(t, nil, locator, 100*time.Millisecond)

	s.Locate(context.Background())
	time.Sleep(60 * time.Millisecond)
	s.Locate(context.Background())

	// First reset would fire around 100ms; the re-armed one keeps the
	// indicator up until ~160ms.
	time.Sleep(60 * time.Millisecond)
	if got := s.Snapshot().GeoStatus; got != types.GeoSuccess {
		t.Errorf("expected geo status still success at 120ms, got %q", got)
	}

	time.Sleep(100 * time.Millisecond)
	if got := s.Snapshot().GeoStatus; got != types.GeoIdle {
		t.Errorf("expected geo status idle after re-armed window, got %q", got)
	}
}

func TestLocateFailure(t *testing.T) {
	locator := &fakeLocator{err: errors.New("permission denied")}
	s := newTestSession(t, nil, locator, 40*time.Millisecond)

	if err := s.Locate(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}

	if got := s.Snapshot().GeoStatus; got != types.GeoError {
		t.Errorf("expected geo status error, got %q", got)
	}

	// Error status has no auto-reset.
	time.Sleep(100 * time.Millisecond)
	if got := s.Snapshot().GeoStatus; got != types.GeoError {
		t.Errorf("expected geo status to stay error, got %q", got)
	}

	// Manual entry is still possible.
	if err := s.SetField("lat", "12.5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Snapshot().Query.Lat; got != "12.5" {
		t.Errorf("expected manual lat '12.5', got '%s'", got)
	}
}

func TestLocateWithoutLocator(t *testing.T) {
	s := newTestSession(t, nil, nil, time.Second)

	if err := s.Locate(context.Background()); err == nil {
		t.Fatal("expected error when no locator is available")
	}
	if got := s.Snapshot().GeoStatus; got != types.GeoError {
		t.Errorf("expected geo status error, got %q", got)
	}
}
