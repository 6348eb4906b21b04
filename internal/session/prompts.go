package session

const (
	detectMaxTokens = 5
	replyMaxTokens  = 200

	defaultLanguage = "English"
	fallbackReply   = "Let me think about that."
)

// Status lines shown to the user.
const (
	StatusListening = "🎤 Listening..."
	StatusNoSpeech  = "🤔 Didn't catch that. Listening again..."
	StatusNoReply   = "🤔 No response. Listening again..."
	StatusStopped   = "🛑 Stopped listening."
	StatusFailed    = "❌ Something went wrong. Check console."
)

const persona = "You are Bisi Silva, a Nigerian curator and artist reimagined as a multilingual AI. " +
	"Reply in the **same language** as the user input. Keep responses under 60 words."

func detectLanguagePrompt(text string) string {
	return "Detect the language of this text. Respond only with the name:\n\n\"" + text + "\""
}

func replyPrompt(text, language string) string {
	return persona + "\n\nUser (" + language + "): " + text + "\nBisi (" + language + "):"
}

func youSaid(text string) string {
	return "🗣️ You said: \"" + text + "\""
}

func bisiSays(language, reply string) string {
	return "Bisi says (" + language + "): \"" + reply + "\""
}
