package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PolicyStatus is the normalized status of an insurance policy.
type PolicyStatus string

// Known policy statuses. Anything else normalizes to PolicyStatusOther.
const (
	PolicyStatusActive  PolicyStatus = "active"
	PolicyStatusPending PolicyStatus = "pending"
	PolicyStatusExpired PolicyStatus = "expired"
	PolicyStatusOther   PolicyStatus = "other"
)

// ParsePolicyStatus maps a raw status case-insensitively.
func ParsePolicyStatus(s string) PolicyStatus {
	switch PolicyStatus(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyStatusActive:
		return PolicyStatusActive
	case PolicyStatusPending:
		return PolicyStatusPending
	case PolicyStatusExpired:
		return PolicyStatusExpired
	default:
		return PolicyStatusOther
	}
}

// Coverage is a single benefit flag.
type Coverage struct {
	Key     string
	Covered bool
}

// CoverageDetails is a JSON object of benefit flags that keeps key order.
type CoverageDetails []Coverage

// UnmarshalJSON decodes an object of booleans preserving the document order.
func (c *CoverageDetails) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("coverage_details: expected object, got %v", tok)
	}

	out := CoverageDetails{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("coverage_details: unexpected key %v", keyTok)
		}
		var covered bool
		if err := dec.Decode(&covered); err != nil {
			return fmt.Errorf("coverage_details.%s: %w", key, err)
		}
		out = append(out, Coverage{Key: key, Covered: covered})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// MarshalJSON writes the flags back as an object in slice order.
func (c CoverageDetails) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cov := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cov.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if cov.Covered {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ClaimsHistory counts claims by outcome.
type ClaimsHistory struct {
	TotalClaims    int `json:"total_claims"`
	ApprovedClaims int `json:"approved_claims"`
	PendingClaims  int `json:"pending_claims"`
	RejectedClaims int `json:"rejected_claims"`
}

// InsurancePolicy is one element of /api/v1/insurance/policies.
type InsurancePolicy struct {
	ID              int64           `json:"id"`
	PolicyNumber    string          `json:"policy_number"`
	PolicyType      string          `json:"policy_type"`
	CoverageAmount  float64         `json:"coverage_amount"`
	PremiumAmount   float64         `json:"premium_amount"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	RawStatus       string          `json:"status"`
	CoverageDetails CoverageDetails `json:"coverage_details"`
	ClaimsHistory   ClaimsHistory   `json:"claims_history"`
}

// Status normalizes RawStatus.
func (p InsurancePolicy) Status() PolicyStatus { return ParsePolicyStatus(p.RawStatus) }
