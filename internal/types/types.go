package types

// RouteQuery holds the form state as the user entered it. Fields stay
// raw strings until submission so a half-typed value never breaks the
// form; the dispatcher sanitizes them into a RoutePayload.
type RouteQuery struct {
	Hour    string `json:"hour"`
	Day     string `json:"day"`
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Speed   string `json:"speed"`
	Road    string `json:"road"`
	Weather string `json:"weather"`
}

// RoutePayload is the sanitized query sent to the prediction service.
type RoutePayload struct {
	Hour    int     `json:"hour"`
	Day     int     `json:"day"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Speed   float64 `json:"speed"`
	Road    string  `json:"road"`
	Weather string  `json:"weather"`
}

// PredictionResult is the assessment returned by the prediction service.
type PredictionResult struct {
	VehicleCount       int     `json:"vehicle_count"`
	TrafficDensity     string  `json:"traffic_density"`
	AccidentLikelihood float64 `json:"accident_likelihood"`
	RiskLabel          string  `json:"risk_label"`
}

// Weather conditions accepted by the prediction service.
const (
	WeatherClear = "Clear"
	WeatherRain  = "Rain"
	WeatherFog   = "Fog"
	WeatherStorm = "Storm"
	WeatherSnow  = "Snow"
)

// WeatherOptions returns the selectable weather conditions in display order.
func WeatherOptions() []string {
	return []string{WeatherClear, WeatherRain, WeatherFog, WeatherStorm, WeatherSnow}
}

// GeoStatus tracks the state of a geolocation attempt.
type GeoStatus string

const (
	GeoIdle    GeoStatus = "idle"
	GeoLoading GeoStatus = "loading"
	GeoSuccess GeoStatus = "success"
	GeoError   GeoStatus = "error"
)

// FieldEditBody is the request body for a field-change event.
type FieldEditBody struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// TimeModeBody is the request body for the time-mode toggle.
type TimeModeBody struct {
	UseCurrentTime bool `json:"use_current_time"`
}
