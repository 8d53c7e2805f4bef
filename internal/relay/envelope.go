package relay

// Outbound event envelopes. Each outbound message carries exactly one event
// kind; the field names are the client contract.

// TranscriptEvent relays an interim or final transcript hypothesis.
type TranscriptEvent struct {
	TranscribedText string `json:"transcribedText"`
	IsFinal         bool   `json:"isFinal"`
}

// AudioEvent carries one synthesized answer as base64-encoded audio.
type AudioEvent struct {
	AIAudioBase64 string `json:"aiAudioBase64"`
}

// ErrorEvent reports a failure on the session or one of its pipeline runs.
type ErrorEvent struct {
	Error string `json:"error"`
}
