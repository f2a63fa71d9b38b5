// SPDX-License-Identifier: MIT
package band

// UnknownState is returned for bands without a state description.
const UnknownState = "Unknown state"

var states = map[Band]string{
	Delta: "YOU ARE TIRED! This is the signature of deep sleep. I'm genuinely not sure how you're still awake, let alone shopping. Shut the screens and rest.",
	Theta: "A BIT SLEEPY: You're in a deeply relaxed or drowsy state, which is great for meditation, but terrible for big decisions. This is not the best time to shop. Come back later!",
	Alpha: "NICE AND CALM: You have a relaxed, focused state. This is ideal for browsing and low-stress tasks. You are calm, but maybe not sharp enough for complex decisions.",
	Beta:  "ACTIVE AND FOCUSED: Your brain is engaged and alert! This is your peak concentration zone. Perfect time for high-stakes decisions.",
	Gamma: "HIGHER PROCESSING: Intense mental activity or problem-solving. You are fully engaged, likely on a complex task. This is a well thought out decision.",
}

// State returns the human-readable state description for a dominant band.
func State(b Band) string {
	if s, ok := states[b]; ok {
		return s
	}
	return UnknownState
}

// Alert reports whether the band indicates a state alert enough to proceed
// with a time-sensitive decision.
func Alert(b Band) bool {
	return b == Beta || b == Gamma
}
