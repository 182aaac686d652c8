package presenter

import (
	"fmt"
	"strings"

	"github.com/Asjal001/saferoute/internal/types"
)

// Styling buckets for the risk indicator.
const (
	ClassSafe    = "risk-safe"
	ClassCaution = "risk-caution"
	ClassDanger  = "risk-danger"
)

// Advisory sentences per risk label.
const (
	AdviceSafe     = "Route conditions look good. Drive safely and follow traffic rules."
	AdviceCaution  = "Moderate risk detected. Stay alert and keep a safe following distance."
	AdviceDanger   = "High risk conditions. Reduce speed and consider an alternate route."
	AdviceHighRisk = "You are entering a high risk area. Avoid travel if possible or proceed with extreme caution."
	AdviceUnknown  = "Analyzing route conditions..."
)

// RiskClass maps a risk label to a styling bucket by substring match.
// Labels outside the known set fall into the danger bucket, which is
// how "High Risk Area" ends up styled as danger.
func RiskClass(riskLabel string) string {
	switch {
	case strings.Contains(riskLabel, "Safe"):
		return ClassSafe
	case strings.Contains(riskLabel, "Caution"):
		return ClassCaution
	default:
		return ClassDanger
	}
}

// Recommendation maps a risk label to its advisory sentence. Unlike
// RiskClass this is an exact match: an unrecognized label yields the
// analyzing placeholder.
func Recommendation(riskLabel string) string {
	switch riskLabel {
	case "Safe":
		return AdviceSafe
	case "Caution":
		return AdviceCaution
	case "Danger":
		return AdviceDanger
	case "High Risk Area":
		return AdviceHighRisk
	default:
		return AdviceUnknown
	}
}

// LikelihoodText formats the accident likelihood for display.
func LikelihoodText(result *types.PredictionResult) string {
	if result == nil {
		return ""
	}
	return fmt.Sprintf("%.1f%%", result.AccidentLikelihood)
}
