package domain

// RiskLevel enumerates guardrail outcomes.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskOrder = map[RiskLevel]int{
	RiskSafe:     0,
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// MoreSevere reports whether l ranks above other.
func (l RiskLevel) MoreSevere(other RiskLevel) bool {
	return riskOrder[l] > riskOrder[other]
}

// RiskAssessment aggregates the advisory evaluation of a command candidate.
type RiskAssessment struct {
	Level        RiskLevel
	Reasons      []string
	MatchedRules []string
	SyntaxError  string
}

// Elevated reports whether the candidate should default to abort.
func (r RiskAssessment) Elevated() bool {
	return r.Level == RiskHigh || r.Level == RiskCritical
}
