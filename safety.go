package medrag

import (
	"regexp"
	"strings"
)

type SafetyCategory string

const (
	SafetyCategoryNone       SafetyCategory = ""
	SafetyCategoryEmptyQuery SafetyCategory = "empty_query"
	SafetyCategoryDiagnosis  SafetyCategory = "diagnosis_request"
	SafetyCategoryMedication SafetyCategory = "medication_request"
	SafetyCategoryTreatment  SafetyCategory = "treatment_request"
)

// SafetyVerdict is the outcome of the pre-retrieval safety gate.
type SafetyVerdict struct {
	Allowed  bool
	Category SafetyCategory
	Refusal  string
}

type safetyRule struct {
	pattern  *regexp.Regexp
	category SafetyCategory
}

// Queries that merely name a condition or symptom stay allowed; only
// requests for a diagnostic judgement, a dosage or a treatment directive
// match. The rules are evaluated in order and the first match wins.
var safetyRules = compileSafetyRules()

func compileSafetyRules() []safetyRule {
	groups := []struct {
		category SafetyCategory
		patterns []string
	}{
		{SafetyCategoryDiagnosis, []string{
			`\bdo i have\b`,
			`\bhave i got\b`,
			`\bam i (?:suffering from|experiencing)\b`,
			`\bis this\b.*\b(?:cancer|disease|condition)\b`,
			`\bwhat disease\b`,
			`\bwhat condition\b`,
			`\bdiagnose me\b`,
			`\bdiagnosis\b.*\bme\b`,
			`\bthese symptoms (?:mean|indicate)\b`,
			`\bwhat (?:do|does) (?:these|my) symptoms\b`,
			`\bcould (?:i|this be)\b.*\b(?:cancer|diabetes|disease)\b`,
		}},
		{SafetyCategoryMedication, []string{
			`\bhow much\b.*\b(?:take|dose|dosage)\b`,
			`\bdose(?:age)?\b.*\b(?:should|recommend|correct|right)\b`,
			`\bhow many\b.*\b(?:mg|pill|tablet|capsule)\b`,
			`\bcan i (?:increase|decrease|change)\b.*\b(?:dose|dosage|medicine|medication)\b`,
			`\bwhat (?:is|should be) (?:the|my) (?:dose|dosage)\b`,
			`\bmg\b.*\b(?:take|should|recommend)\b`,
			`\bprescribe(?:d)?\b.*\b(?:me|for me)\b`,
		}},
		{SafetyCategoryTreatment, []string{
			`\bshould i take\b`,
			`\bshould i start\b.*\b(?:treatment|therapy|medication|medicine)\b`,
			`\bbest (?:treatment|medicine|medication|drug)\b`,
			`\bwhat (?:treatment|medicine|medication) should\b`,
			`\brecommend(?:ed)? (?:treatment|medication|medicine)\b`,
			`\bwhich (?:treatment|medicine|medication|drug) is best\b`,
			`\bcan i start\b.*\b(?:treatment|therapy|chemotherapy)\b`,
			`\bshould i (?:undergo|get|have)\b.*\b(?:surgery|operation|treatment)\b`,
			`\bhow (?:should|do) i treat\b`,
			`\btreat (?:my|this|the)\b`,
		}},
	}

	var rules []safetyRule
	for _, g := range groups {
		for _, p := range g.patterns {
			rules = append(rules, safetyRule{
				pattern:  regexp.MustCompile(`(?i)` + p),
				category: g.category,
			})
		}
	}
	return rules
}

var refusals = map[SafetyCategory]string{
	SafetyCategoryEmptyQuery: "Please enter a medical question so I can look for relevant information.",
	SafetyCategoryDiagnosis:  "I can't help with diagnosing a condition. Please consult a qualified healthcare professional who can examine you and interpret your symptoms.",
	SafetyCategoryMedication: "I can't advise on medication doses or prescriptions. Please consult a qualified healthcare professional or pharmacist for dosing guidance.",
	SafetyCategoryTreatment:  "I can't help with diagnosis or treatment decisions. Please consult a qualified healthcare professional for personalized medical advice.",
}

// ClassifyQuery runs the pre-retrieval safety gate. It is a total, pure
// function over all string inputs: no retrieval, no generation, no I/O.
func ClassifyQuery(query string) SafetyVerdict {
	if strings.TrimSpace(query) == "" {
		return SafetyVerdict{
			Allowed:  false,
			Category: SafetyCategoryEmptyQuery,
			Refusal:  refusals[SafetyCategoryEmptyQuery],
		}
	}

	query = strings.TrimSpace(query)

	for _, rule := range safetyRules {
		if rule.pattern.MatchString(query) {
			return SafetyVerdict{
				Allowed:  false,
				Category: rule.category,
				Refusal:  refusals[rule.category],
			}
		}
	}

	return SafetyVerdict{Allowed: true}
}
