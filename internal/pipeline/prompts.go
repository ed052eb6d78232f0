package pipeline

import "fmt"

const (
	// noMatchRunbook is returned when retrieval finds no historical
	// precedent. No model calls are made in that path.
	noMatchRunbook = "No historical matches found. This may be a novel incident — escalate to on-call engineer."
	noMatchPattern = "No pattern detected."
)

const analysisPromptTemplate = `You are an expert SRE analyst. Given the current symptoms and historical matches, identify the root cause pattern.

Current symptoms:
%s

Historical similar incidents:
%s

In 2-3 sentences, identify the root cause pattern you see across these incidents and how it relates to the current situation. Be specific and technical.`

const actionPromptTemplate = `You are a senior SRE writing an emergency runbook. Use ONLY the historical resolutions provided to suggest remediation steps for the current incident.

Current symptoms:
%s

Root cause pattern:
%s

Historical resolutions:
%s

Generate a numbered 5-7 step remediation runbook. Each step should be:
- Specific and actionable (include actual commands or config changes where relevant)
- Ordered by priority (most critical first)
- Based strictly on the historical resolutions above

Format each step as:
Step N: [Action Title]
[Detailed description with specific commands/values]`

func analysisPrompt(symptoms, context string) string {
	return fmt.Sprintf(analysisPromptTemplate, symptoms, context)
}

func actionPrompt(symptoms, pattern, context string) string {
	return fmt.Sprintf(actionPromptTemplate, symptoms, pattern, context)
}
