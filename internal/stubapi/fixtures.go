package stubapi

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/vitaldash/internal/domain/model"
)

const (
	modelVersion  = "rf-1.0.0"
	metricSamples = 12
)

// policyNamespace roots the name-based UUIDs used for policy numbers.
var policyNamespace = uuid.MustParse("5b4f3a0e-2c1d-4e8f-9a6b-7c3d2e1f0a9b")

// seriesStart is the first sample date of every generated series.
var seriesStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// fixtures is the generated data for one user. The same email always
// yields the same data.
type fixtures struct {
	metrics  []model.HealthMetricsSample
	record   model.HealthRecord
	risk     model.RiskAssessment
	policies []model.InsurancePolicy
}

func f64(v float64) *float64 { return &v }

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// clamp01 maps v from [lo, hi] to [0, 1].
func clamp01(v, lo, hi float64) float64 {
	return math.Min(math.Max((v-lo)/(hi-lo), 0), 1)
}

func seedFor(email string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(email)))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum>>1|1))
}

func generate(user model.User) fixtures {
	rng := seedFor(user.Email)

	height := round1(155 + rng.Float64()*35)
	bmi := 20 + rng.Float64()*12
	systolic := 105 + rng.Float64()*35
	diastolic := 68 + rng.Float64()*22
	pulse := 60 + rng.Float64()*25

	var fx fixtures
	for i := range metricSamples {
		bmi += rng.Float64()*0.6 - 0.3
		systolic += rng.Float64()*6 - 3
		diastolic += rng.Float64()*4 - 2
		fx.metrics = append(fx.metrics, model.HealthMetricsSample{
			Date:                   seriesStart.AddDate(0, i, 0).Format(time.DateOnly),
			BMI:                    f64(round1(bmi)),
			BloodPressureSystolic:  f64(math.Round(systolic)),
			BloodPressureDiastolic: f64(math.Round(diastolic)),
			HeartRate:              f64(math.Round(pulse + rng.Float64()*6 - 3)),
		})
	}

	last := fx.metrics[len(fx.metrics)-1]
	heightM := height / 100
	cholesterol := math.Round(150 + rng.Float64()*110)
	fasting := math.Round(75 + rng.Float64()*50)
	updated := seriesStart.AddDate(0, metricSamples-1, 0)

	fx.record = model.HealthRecord{
		ID:        user.ID,
		PatientID: user.ID,
		Height:    f64(height),
		Weight:    f64(round1(*last.BMI * heightM * heightM)),
		BMI:       last.BMI,
		BloodPressure: &model.BloodPressure{
			Systolic:  last.BloodPressureSystolic,
			Diastolic: last.BloodPressureDiastolic,
			Unit:      "mmHg",
		},
		HeartRate: last.HeartRate,
		Cholesterol: &model.Cholesterol{
			Total:         f64(cholesterol),
			HDL:           f64(math.Round(40 + rng.Float64()*30)),
			LDL:           f64(math.Round(cholesterol * 0.6)),
			Triglycerides: f64(math.Round(90 + rng.Float64()*110)),
			Unit:          "mg/dL",
		},
		BloodSugar: &model.BloodSugar{
			Fasting:  f64(fasting),
			PostMeal: f64(math.Round(fasting * 1.35)),
			Unit:     "mg/dL",
		},
		MedicalConditions: pick(rng, []string{"Hypertension", "Seasonal asthma", "Hypothyroidism", "Migraine"}, 2),
		Allergies:         pick(rng, []string{"Penicillin", "Peanuts", "Pollen", "Latex"}, 2),
		Medications: []model.Medication{
			{Name: "Lisinopril", Dosage: "10mg", Frequency: "Once daily", StartDate: "2023-03-15"},
			{Name: "Vitamin D", Dosage: "1000 IU", Frequency: "Once daily", StartDate: "2023-09-01", EndDate: "2024-09-01"},
		},
		Immunizations: []model.Immunization{
			{Name: "Influenza", Date: "2023-10-12", Provider: "City Health Clinic", NextDueDate: "2024-10-12"},
			{Name: "Tetanus", Date: "2019-05-20", Provider: "General Hospital"},
		},
		LastUpdated: updated.Format(time.RFC3339),
	}

	fx.risk = assess(user.ID, *last.BMI, *last.BloodPressureSystolic, cholesterol, fasting, rng)

	types := []string{"Health Basic", "Health Plus", "Dental Care", "Vision Care"}
	statuses := []string{"active", "active", "pending", "expired"}
	count := 1 + rng.IntN(3)
	for i := range count {
		coverage := math.Round(50+rng.Float64()*450) * 1000
		start := seriesStart.AddDate(-i, 0, 0)
		total := rng.IntN(12)
		approved := rng.IntN(total + 1)
		pending := rng.IntN(total - approved + 1)
		fx.policies = append(fx.policies, model.InsurancePolicy{
			ID:             user.ID*10 + int64(i) + 1,
			PolicyNumber:   "POL-" + strings.ToUpper(uuid.NewSHA1(policyNamespace, []byte(user.Email+"/"+types[i])).String()[:8]),
			PolicyType:     types[i],
			CoverageAmount: coverage,
			PremiumAmount:  math.Round(coverage/1000*rng.Float64()*2+50) + 0.99,
			StartDate:      start.Format(time.DateOnly),
			EndDate:        start.AddDate(1, 0, -1).Format(time.DateOnly),
			RawStatus:      statuses[i],
			CoverageDetails: model.CoverageDetails{
				{Key: "inpatient_care", Covered: true},
				{Key: "outpatient_care", Covered: true},
				{Key: "prescription_drugs", Covered: rng.IntN(2) == 0},
				{Key: "mental_health", Covered: rng.IntN(2) == 0},
				{Key: "dental_care", Covered: types[i] == "Dental Care"},
				{Key: "vision_care", Covered: types[i] == "Vision Care"},
			},
			ClaimsHistory: model.ClaimsHistory{
				TotalClaims:    total,
				ApprovedClaims: approved,
				PendingClaims:  pending,
				RejectedClaims: total - approved - pending,
			},
		})
	}
	return fx
}

// assess scores the latest readings on a 0..100 scale.
func assess(id int64, bmi, systolic, cholesterol, fasting float64, rng *rand.Rand) model.RiskAssessment {
	nBMI := clamp01(bmi, 18.5, 30)
	nBP := clamp01(systolic, 90, 140)
	nChol := clamp01(cholesterol, 150, 250)
	nSugar := clamp01(fasting, 70, 126)
	exercise := 0.25 + float64(rng.IntN(4))*0.25

	cardio := 100 * (0.25*nBMI + 0.35*nBP + 0.25*nChol + 0.15*exercise)
	metabolic := 100 * (0.4*nBMI + 0.4*nSugar + 0.2*exercise)
	respiratory := 100 * (0.2 + 0.3*rng.Float64())
	lifestyle := 100 * (0.5*exercise + 0.2*rng.Float64())
	overall := (cardio + metabolic + respiratory + lifestyle) / 4

	r := model.RiskAssessment{
		ID:                   id,
		OverallRiskScore:     f64(round1(overall)),
		RiskLevel:            level(overall),
		CardiovascularRisk:   f64(round1(cardio)),
		RespiratoryRisk:      f64(round1(respiratory)),
		MetabolicRisk:        f64(round1(metabolic)),
		LifestyleRisk:        f64(round1(lifestyle)),
		ModelVersion:         modelVersion,
		PredictionConfidence: f64(math.Round((0.7+rng.Float64()*0.25)*1000) / 1000),
	}

	if cardio > 50 {
		r.PredictedHealthIssues = append(r.PredictedHealthIssues, "Hypertension")
		r.Recommendations = append(r.Recommendations, "Schedule a cardiac check-up", "Monitor blood pressure daily")
	}
	if metabolic > 50 {
		r.PredictedHealthIssues = append(r.PredictedHealthIssues, "Type 2 Diabetes")
		r.Recommendations = append(r.Recommendations, "Monitor blood sugar levels", "Consult a nutritionist")
	}
	if lifestyle > 50 {
		r.Recommendations = append(r.Recommendations, "Practice stress management", "Get regular health check-ups")
	}
	if len(r.Recommendations) == 0 {
		r.Recommendations = []string{"Maintain a balanced diet", "Get regular sleep"}
	}
	if nBMI > 0.5 {
		r.RiskFactors = append(r.RiskFactors, "Elevated BMI")
	}
	if nBP > 0.5 {
		r.RiskFactors = append(r.RiskFactors, "High blood pressure")
	}
	if nChol > 0.5 {
		r.RiskFactors = append(r.RiskFactors, "High cholesterol")
	}
	if exercise > 0.5 {
		r.RiskFactors = append(r.RiskFactors, "Low physical activity")
	}
	return r
}

func level(score float64) string {
	switch {
	case score < 35:
		return "Low"
	case score < 60:
		return "Moderate"
	default:
		return "High"
	}
}

// pick returns up to n distinct items in their original order.
func pick(rng *rand.Rand, items []string, n int) []string {
	out := make([]string, 0, n)
	for _, it := range items {
		if len(out) < n && rng.IntN(2) == 0 {
			out = append(out, it)
		}
	}
	return out
}
