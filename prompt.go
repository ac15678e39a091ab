package medrag

import (
	"fmt"
	"strings"
)

// The prompt templates are versioned constants. Changing them is a
// deliberate configuration change, not runtime logic; bump PromptVersion
// whenever the wording moves.
const PromptVersion = "v1"

// Disclaimer is the short sentence every validated answer must end with.
const Disclaimer = "This information is for educational purposes only and is not medical advice."

// MandatoryDisclaimer is the full closing line requested from the generator.
const MandatoryDisclaimer = Disclaimer +
	" Always consult a qualified healthcare professional for medical concerns."

const systemPrompt = `You are a medical information assistant.

You MUST:
- Answer ONLY using the provided context.
- NOT use prior knowledge.
- NOT add new medical facts.
- Cite every factual statement using the provided chunk IDs.
- Refuse diagnosis, prescription, or treatment recommendation requests.

If the answer is not present in the provided context, say:
"I don't have enough information in the provided sources."

Always include the following disclaimer at the end:
"` + Disclaimer + `"`

const userPromptTemplate = `Context:

%s

Question:
%s

Instructions:
- Answer in clear, concise paragraphs.
- IMPORTANT: Cite sources using EXACTLY this format: (CHUNK_ID) with ONE ID per parenthesis.
- Example: "Diabetes affects blood sugar (DOC_001). It can cause complications (DOC_002)."
- NEVER group multiple IDs like (DOC_001, DOC_002) - use separate citations.
- Do not speculate or add information not in the context.
- End your answer with this exact disclaimer: %s`

// Prompt is a fully rendered generation request.
type Prompt struct {
	System  string
	Context string
	User    string
}

// BuildPrompt deterministically renders the system instructions, the
// numbered evidence context and the user question. Evidence chunks appear
// in rank order, each prefixed with its citation marker.
func BuildPrompt(question string, evidence Evidence) Prompt {
	lines := make([]string, 0, len(evidence.Candidates))
	for _, c := range evidence.Candidates {
		lines = append(lines, fmt.Sprintf("(%s) %s", c.Chunk.ID, c.Chunk.Text))
	}
	context := strings.Join(lines, "\n\n")

	return Prompt{
		System:  systemPrompt,
		Context: context,
		User:    fmt.Sprintf(userPromptTemplate, context, question, MandatoryDisclaimer),
	}
}
