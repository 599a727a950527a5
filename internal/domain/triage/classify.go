// Package triage holds the pure intake rules: symptom classification and
// the queue wait estimate.
package triage

import "strings"

// Classification is the triage category assigned to a patient at intake.
type Classification string

const (
	General    Classification = "general"
	Specialist Classification = "specialist"
	Emergency  Classification = "emergency"
)

// SpecialistAgeThreshold is the age above which a patient is routed to a
// specialist even without a specialist keyword.
const SpecialistAgeThreshold = 65

// Keyword lists are matched in order against lower-cased symptom text.
var (
	emergencyKeywords = []string{
		"chest pain", "heart attack", "stroke", "unconscious", "severe bleeding",
		"accident", "trauma", "breathing difficulty", "seizure", "poisoning",
		"severe", "critical", "emergency", "collapse",
	}
	specialistKeywords = []string{
		"cardiac", "heart", "neuro", "brain", "ortho", "bone", "fracture",
		"surgery", "chronic", "diabetes", "cancer", "kidney", "liver",
	}
)

// Valid reports whether c is one of the known classifications.
func (c Classification) Valid() bool {
	switch c {
	case General, Specialist, Emergency:
		return true
	}
	return false
}

// Classify maps intake symptoms and age to a classification. Emergency
// keywords win over everything else.
func Classify(symptoms string, age int) Classification {
	text := strings.ToLower(symptoms)
	if containsAny(text, emergencyKeywords) {
		return Emergency
	}
	if containsAny(text, specialistKeywords) || age > SpecialistAgeThreshold {
		return Specialist
	}
	return General
}

// Result is a classification together with the rule inputs that produced it.
type Result struct {
	Classification Classification `json:"classification"`
	Matched        []string       `json:"matched_keywords,omitempty"`
	AgeRule        bool           `json:"age_rule"`
}

// Explain classifies like Classify and also reports which keywords matched.
// Only the keyword set that decided the outcome is reported.
func Explain(symptoms string, age int) Result {
	text := strings.ToLower(symptoms)
	if m := matches(text, emergencyKeywords); len(m) > 0 {
		return Result{Classification: Emergency, Matched: m}
	}
	m := matches(text, specialistKeywords)
	older := age > SpecialistAgeThreshold
	if len(m) > 0 || older {
		return Result{Classification: Specialist, Matched: m, AgeRule: older}
	}
	return Result{Classification: General}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func matches(text string, keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if strings.Contains(text, k) {
			out = append(out, k)
		}
	}
	return out
}
