package medrag

type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// mediumConfidenceThreshold separates medium from high confidence. The
// low/medium boundary is the configurable uncertainty threshold.
const mediumConfidenceThreshold = 0.40

func confidenceFor(maxScore, lowThreshold float64) ConfidenceLevel {
	switch {
	case maxScore < lowThreshold:
		return ConfidenceLow
	case maxScore < mediumConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

const clarifyingQuestion = "I'm not finding strong matches in my knowledge base for your question. " +
	"Could you clarify which specific condition, symptom, or topic you're asking about? " +
	"Providing more details will help me find more relevant information."

// GateDecision is the confidence gate's verdict. When Proceed is false the
// pipeline returns Fallback without ever invoking the generator, which is
// the primary hallucination-prevention and cost-control mechanism.
type GateDecision struct {
	Proceed  bool
	Fallback string
}

func gate(evidence Evidence, threshold float64) GateDecision {
	if !evidence.Empty() && evidence.MaxScore >= threshold {
		return GateDecision{Proceed: true}
	}
	return GateDecision{
		Fallback: clarifyingQuestion + "\n\n" + MandatoryDisclaimer,
	}
}
