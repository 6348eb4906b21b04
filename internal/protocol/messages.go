package protocol

import "strings"

// CompletionRequest is the body accepted by the completion endpoint.
type CompletionRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

// SynthesisRequest is the body accepted by the synthesis endpoint.
type SynthesisRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is the fixed-shape body returned on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TranscriptResponse covers the transcript fields vendors are known to use.
type TranscriptResponse struct {
	Text       string `json:"text"`
	Transcript string `json:"transcript"`
}

// Value returns text, falling back to transcript.
func (t TranscriptResponse) Value() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Transcript
}

// Generation is one completion candidate.
type Generation struct {
	Text string `json:"text"`
}

// GenerationResponse is the completion envelope relayed by the proxy.
type GenerationResponse struct {
	Generations []Generation `json:"generations"`
}

// FirstText returns the trimmed text of the first generation, or "".
func (g GenerationResponse) FirstText() string {
	if len(g.Generations) == 0 {
		return ""
	}
	return strings.TrimSpace(g.Generations[0].Text)
}

const (
	PathTranscribe = "/api/transcribe"
	PathComplete   = "/api/cohere"
	PathSynthesize = "/api/tts"

	// FormFieldAudio is the multipart field carrying the recorded clip.
	FormFieldAudio = "file"
	// UploadFilename is the filename attached to uploaded clips.
	UploadFilename = "recording.wav"

	ContentTypeAudio = "audio/mpeg"
	ContentTypeJSON  = "application/json"
)
