package eta

import "strings"

// SymptomAnalysis is the structured result of classifying free symptom text.
type SymptomAnalysis struct {
	Category    string
	ConsultMins float64
	Urgency     int
	Emergency   bool
}

type symptomCategory struct {
	name     string
	keywords []string
	baseMins float64
	urgency  int
}

// Categories ordered by urgency; when several match, the most urgent wins.
var symptomCategories = []symptomCategory{
	{
		name:     "emergency",
		keywords: []string{"emergency", "urgent", "critical", "severe pain", "heart", "stroke", "accident"},
		baseMins: 30,
		urgency:  10,
	},
	{
		name:     "serious_symptoms",
		keywords: []string{"severe", "intense", "unbearable", "chronic", "persistent", "blood"},
		baseMins: 25,
		urgency:  8,
	},
	{
		name:     "respiratory",
		keywords: []string{"breathing", "asthma", "shortness", "chest", "wheezing"},
		baseMins: 20,
		urgency:  6,
	},
	{
		name:     "pain_management",
		keywords: []string{"pain", "ache", "joint", "back", "muscle", "arthritis", "injury"},
		baseMins: 18,
		urgency:  4,
	},
	{
		name:     "digestive_issues",
		keywords: []string{"stomach", "nausea", "vomiting", "diarrhea", "constipation", "indigestion"},
		baseMins: 15,
		urgency:  3,
	},
	{
		name:     "minor_illness",
		keywords: []string{"fever", "cold", "cough", "headache", "sore throat", "runny nose", "sneezing"},
		baseMins: 8,
		urgency:  2,
	},
	{
		name:     "skin_conditions",
		keywords: []string{"rash", "itching", "skin", "allergy", "eczema", "acne"},
		baseMins: 13,
		urgency:  2,
	},
	{
		name:     "routine_checkup",
		keywords: []string{"checkup", "routine", "physical", "annual", "preventive"},
		baseMins: 12,
		urgency:  1,
	},
}

var complexityIndicators = []string{
	"multiple", "several", "chronic", "persistent", "recurring",
	"severe", "intense", "unbearable", "worsening", "complicated",
}

// AnalyzeSymptoms classifies free symptom text into a category with an
// expected consultation duration and a 1-10 urgency score. Unclassified
// text falls back to a general consultation at mid-low urgency.
func AnalyzeSymptoms(symptoms string) SymptomAnalysis {
	text := strings.ToLower(symptoms)

	var best *symptomCategory
	for i := range symptomCategories {
		c := &symptomCategories[i]
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				if best == nil || c.urgency > best.urgency {
					best = c
				}
				break
			}
		}
	}

	analysis := SymptomAnalysis{
		Category:    "general_consultation",
		ConsultMins: 15,
		Urgency:     3,
	}
	if best != nil {
		analysis.Category = best.name
		analysis.ConsultMins = best.baseMins
		analysis.Urgency = best.urgency
	}

	analysis.ConsultMins *= complexityFactor(text)
	analysis.Emergency = analysis.Urgency >= 9
	return analysis
}

// complexityFactor stretches the consultation estimate when the description
// signals a complicated presentation.
func complexityFactor(text string) float64 {
	count := 0
	for _, indicator := range complexityIndicators {
		if strings.Contains(text, indicator) {
			count++
		}
	}
	switch {
	case count == 0:
		return 1.0
	case count <= 2:
		return 1.3
	default:
		return 1.6
	}
}

// ConsultMinsForCategory returns the base consultation estimate for a known
// category, or def when the category is unknown.
func ConsultMinsForCategory(category string, def float64) float64 {
	for _, c := range symptomCategories {
		if c.name == category {
			return c.baseMins
		}
	}
	return def
}
