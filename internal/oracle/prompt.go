package oracle

import (
	"fmt"
	"strings"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/port"
)

// BuildJudgePrompt returns the clause judgment prompt. Evidence excerpts are
// numbered; the model cites them back by index so verdicts stay anchored to
// real document spans.
func BuildJudgePrompt(req port.JudgeRequest) string {
	var sb strings.Builder
	sb.WriteString(`You are a contract compliance reviewer for purchase orders. The contract text mixes Persian and English; judge it in either language.

Compare the REQUIRED CLAUSE against the DOCUMENT EXCERPTS and decide whether the document satisfies the requirement.

Return ONLY valid JSON with no markdown formatting, no code fences, no explanation — just the raw JSON object:
{
  "status": "match" | "mismatch" | "missing" | "needs_review",
  "expected": "the required wording or condition",
  "actual": "the wording actually found, empty if absent",
  "evidence": [0],
  "fix": "suggested redline wording, empty if none needed",
  "severity": "low" | "medium" | "high",
  "confidence": 0.0
}

Rules:
- "evidence" lists the numbers of the excerpts your verdict relies on. Use [] only with status "missing".
- "confidence" is your certainty between 0.0 and 1.0.
- If the excerpts are contradictory or too fragmentary to decide, use "needs_review".

REQUIRED CLAUSE (id ` + req.ClauseID + `):
`)
	sb.WriteString(req.ExpectedText)
	sb.WriteString("\n\nDOCUMENT EXCERPTS:\n")
	for i, ev := range req.Evidence {
		fmt.Fprintf(&sb, "[%d] (doc %s, page %d)\n%s\n\n", i, ev.Anchor.Doc, ev.Anchor.Page, ev.Text)
	}
	if len(req.Evidence) == 0 {
		sb.WriteString("(none)\n")
	}
	return sb.String()
}
