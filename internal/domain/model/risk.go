package model

// RiskAssessment is the scored aggregate served by /api/v1/risk-assessment/latest.
type RiskAssessment struct {
	ID                    int64    `json:"id"`
	OverallRiskScore      *float64 `json:"overall_risk_score"`
	RiskLevel             string   `json:"risk_level"`
	CardiovascularRisk    *float64 `json:"cardiovascular_risk"`
	RespiratoryRisk       *float64 `json:"respiratory_risk"`
	MetabolicRisk         *float64 `json:"metabolic_risk"`
	LifestyleRisk         *float64 `json:"lifestyle_risk"`
	PredictedHealthIssues []string `json:"predicted_health_issues"`
	RiskFactors           []string `json:"risk_factors"`
	Recommendations       []string `json:"recommendations"`
	ModelVersion          string   `json:"model_version"`
	// PredictionConfidence is a fraction in [0, 1].
	PredictionConfidence *float64 `json:"prediction_confidence"`
}

// ComponentRisk is one named sub-score.
type ComponentRisk struct {
	Name  string
	Value *float64
}

// Components lists the four sub-scores in display order.
func (r RiskAssessment) Components() []ComponentRisk {
	return []ComponentRisk{
		{Name: "Cardiovascular Risk", Value: r.CardiovascularRisk},
		{Name: "Respiratory Risk", Value: r.RespiratoryRisk},
		{Name: "Metabolic Risk", Value: r.MetabolicRisk},
		{Name: "Lifestyle Risk", Value: r.LifestyleRisk},
	}
}
