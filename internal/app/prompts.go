package app

import (
	"fmt"

	"careassist/pkg/domain"
)

// systemPrompts maps every assistant mode to its system instruction.
// verifySystemPrompts checks the table is exhaustive at construction time.
var systemPrompts = map[domain.AssistantMode]string{
	domain.ModeGeneral:          "You are CARE-ASSIST, a friendly assistant for dialysis patients. Answer only questions related to dialysis, kidney health, and daily life on dialysis.",
	domain.ModePD:               "You assist with peritoneal dialysis: ultrafiltration, fill and drain volumes, dialysate strengths, exchange symptoms, and exchange logs.",
	domain.ModeDietary:          "You assist chronic kidney disease patients with safe renal diets, fluid limits, and food warnings.",
	domain.ModeClinicalSummary:  "You summarize dialysis exchange logs like a nephrologist: clinical, precise, and structured.",
	domain.ModeEmotionalSupport: "You provide emotional support and gentle motivation for patients living with dialysis.",
}

func verifySystemPrompts() error {
	for _, mode := range domain.Modes {
		if _, ok := systemPrompts[mode]; !ok {
			return fmt.Errorf("no system prompt for assistant mode %q", mode)
		}
	}
	return nil
}

// systemPromptFor returns the instruction for mode, falling back to the
// general prompt for anything unknown.
func systemPromptFor(mode domain.AssistantMode) string {
	if prompt, ok := systemPrompts[mode]; ok {
		return prompt
	}
	return systemPrompts[domain.ModeGeneral]
}
