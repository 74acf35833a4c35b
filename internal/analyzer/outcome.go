package analyzer

import "github.com/raysh454/observer/internal/model"

// OutcomeKind tags which path produced an analysis.
type OutcomeKind int

const (
	// OutcomeParsed: the model reply matched the expected structure.
	OutcomeParsed OutcomeKind = iota
	// OutcomeDegraded: the reply could not be parsed; Raw holds it.
	OutcomeDegraded
	// OutcomeUnavailable: the model could not be reached; Err says why.
	OutcomeUnavailable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeParsed:
		return "parsed"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Outcome is the result of one analysis. Result is never nil, whatever the
// Kind.
type Outcome struct {
	Kind   OutcomeKind
	Result *model.AnalysisResult
	Raw    string
	Err    error
}

// Degraded reports whether the result is the fallback observation.
func (o Outcome) Degraded() bool {
	return o.Kind != OutcomeParsed
}
