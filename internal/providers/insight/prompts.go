package insight

import "fmt"

// ChatPrompt frames a farmer's question for the assistant.
func ChatPrompt(message string) string {
	return fmt.Sprintf(`You are AgriPulse, a friendly agricultural assistant for Indian farmers.
Answer questions about crops, weather, mandi prices, government schemes, and farming practices.
Keep answers practical and under 150 words. Reply in the language of the question.

Question: %s`, message)
}

// DiagnosisPrompt asks the vision model for a structured leaf diagnosis.
func DiagnosisPrompt() string {
	return `Analyze this crop leaf image for diseases. Respond ONLY with a JSON object in this exact shape:
{"detected_disease": "<name or Healthy>", "confidence": "<High|Medium|Low>", "severity": "<None|Mild|Moderate|Severe>", "recommended_treatment": "<one or two sentences>"}`
}
