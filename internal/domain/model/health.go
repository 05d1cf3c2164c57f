package model

// Optional numeric fields are pointers: nil means the API did not report a value.

// HealthMetricsSample is one dated observation in the metrics time series.
type HealthMetricsSample struct {
	Date                   string   `json:"date"`
	BMI                    *float64 `json:"bmi"`
	BloodPressureSystolic  *float64 `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *float64 `json:"blood_pressure_diastolic"`
	HeartRate              *float64 `json:"heart_rate"`
}

// BloodPressure reading.
type BloodPressure struct {
	Systolic  *float64 `json:"systolic"`
	Diastolic *float64 `json:"diastolic"`
	Unit      string   `json:"unit"`
}

// Cholesterol panel.
type Cholesterol struct {
	Total         *float64 `json:"total"`
	HDL           *float64 `json:"hdl"`
	LDL           *float64 `json:"ldl"`
	Triglycerides *float64 `json:"triglycerides"`
	Unit          string   `json:"unit"`
}

// BloodSugar panel.
type BloodSugar struct {
	Fasting  *float64 `json:"fasting"`
	PostMeal *float64 `json:"post_meal"`
	Unit     string   `json:"unit"`
}

// Medication is a current or past prescription.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`
}

// Immunization record.
type Immunization struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Provider    string `json:"provider"`
	NextDueDate string `json:"next_due_date,omitempty"`
}

// HealthRecord is the snapshot served by /api/v1/health-record.
// List fields keep the order the API sent them in.
type HealthRecord struct {
	ID                int64          `json:"id"`
	PatientID         int64          `json:"patient_id"`
	Height            *float64       `json:"height"`
	Weight            *float64       `json:"weight"`
	BMI               *float64       `json:"bmi"`
	BloodPressure     *BloodPressure `json:"blood_pressure"`
	HeartRate         *float64       `json:"heart_rate"`
	Cholesterol       *Cholesterol   `json:"cholesterol"`
	BloodSugar        *BloodSugar    `json:"blood_sugar"`
	MedicalConditions []string       `json:"medical_conditions"`
	Medications       []Medication   `json:"medications"`
	Allergies         []string       `json:"allergies"`
	Immunizations     []Immunization `json:"immunizations"`
	LastUpdated       string         `json:"last_updated"`
}

// Latest returns the last sample of a series, or nil for an empty one.
func Latest(samples []HealthMetricsSample) *HealthMetricsSample {
	if len(samples) == 0 {
		return nil
	}
	return &samples[len(samples)-1]
}
