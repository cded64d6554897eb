package prompt

import (
	"fmt"

	"github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

// SystemInstruction sets the analyst persona and the output contract.
const SystemInstruction = `You are ScamGuard, a veteran Cybersecurity Analyst and Social Engineer detector. Your goal is to protect vulnerable users.

When given an image, text, or URL:
1. Analyze the content for signs of fraud (e.g., mismatched URLs, urgency, grammar errors, pixelated logos, requests for money/gift cards).
2. For URLs: Use Google Search to investigate if the domain is legitimate, if it's a known phishing site, or if there are reports of scams associated with it. Cross-reference with the real official website of the organization it claims to be.
3. Identify the specific scam technique (e.g., 'Pig Butchering', 'IRS Impersonation', 'Tech Support Fraud', 'Phishing', 'Safe').

Output your response in a strict JSON structure.
Keep your tone empathetic but firm. If the content is safe, reassure the user. Use "Safe" or "No Scam Detected" for scam_type if low risk.`

// ImageInstruction accompanies an inline screenshot.
const ImageInstruction = "Analyze this image for any potential scams or fraudulent activity."

// ResponseSchema is the structured output every provider must enforce.
// risk_score stays a free-form string; the normalizer canonicalizes it.
func ResponseSchema() *analysis.Schema {
	return &analysis.Schema{
		Type: analysis.TypeObject,
		Properties: map[string]*analysis.Schema{
			"risk_score": {
				Type:        analysis.TypeString,
				Description: "Must be 'High', 'Medium', or 'Low'",
			},
			"scam_type": {
				Type:        analysis.TypeString,
				Description: "The name of the detected scam or 'Legitimate' if safe",
			},
			"red_flags": {
				Type:        analysis.TypeArray,
				Items:       &analysis.Schema{Type: analysis.TypeString},
				Description: "List of specific suspicious elements discovered",
			},
			"advice": {
				Type:        analysis.TypeString,
				Description: "Clear instructions for the user",
			},
		},
		Required: []string{"risk_score", "scam_type", "red_flags", "advice"},
	}
}

// TextPrompt wraps a pasted message.
func TextPrompt(text string) string {
	return fmt.Sprintf("Analyze the following message for scams:\n\n%s", text)
}

// LinkPrompt wraps a URL and asks for a search-backed legitimacy check.
func LinkPrompt(url string) string {
	return fmt.Sprintf("Investigate this URL for safety and legitimacy: %s. Use Google Search to verify if this is the official site of the entity it claims to represent or if it is a scam/phishing link.", url)
}
