package tts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxpipe/voice-relay/internal/config"
)

func newTestClient(endpoint string) *AzureClient {
	cfg := &config.Config{
		SpeechKey:               "test-speech-key",
		SpeechRegion:            "southeastasia",
		SpeechVoice:             "th-TH-AcharaNeural",
		SpeechOutputFormat:      "audio-24khz-160kbitrate-mono-mp3",
		SpeechEndpoint:          endpoint,
		SynthesisTimeoutSeconds: 5,
	}
	return NewAzureClient(cfg)
}

func TestSynthesize_Success(t *testing.T) {
	wantAudio := []byte{0x01, 0x02, 0x03}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "test-speech-key" {
			t.Errorf("subscription key header = %q, want %q", got, "test-speech-key")
		}
		if got := r.Header.Get("Content-Type"); got != "application/ssml+xml" {
			t.Errorf("content type = %q, want application/ssml+xml", got)
		}
		if got := r.Header.Get("X-Microsoft-OutputFormat"); got != "audio-24khz-160kbitrate-mono-mp3" {
			t.Errorf("output format header = %q", got)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read request body: %v", err)
		}
		ssml := string(body)
		if !strings.Contains(ssml, "th-TH-AcharaNeural") {
			t.Errorf("SSML missing voice name: %s", ssml)
		}
		if !strings.Contains(ssml, "สวัสดีค่ะ") {
			t.Errorf("SSML missing input text: %s", ssml)
		}
		if !strings.Contains(ssml, `xml:lang='th-TH'`) {
			t.Errorf("SSML missing document locale: %s", ssml)
		}

		w.Write(wantAudio)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	audio, err := client.Synthesize(context.Background(), "สวัสดีค่ะ")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != string(wantAudio) {
		t.Errorf("audio = %v, want %v", audio, wantAudio)
	}
}

func TestSynthesize_RegionDerivedEndpoint(t *testing.T) {
	cfg := &config.Config{
		SpeechKey:               "k",
		SpeechRegion:            "southeastasia",
		SpeechVoice:             "th-TH-AcharaNeural",
		SynthesisTimeoutSeconds: 5,
	}
	client := NewAzureClient(cfg)

	want := "https://southeastasia.tts.speech.microsoft.com/cognitiveservices/v1"
	if client.endpoint != want {
		t.Errorf("endpoint = %q, want %q", client.endpoint, want)
	}
}

func TestSynthesize_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("quota exceeded"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Synthesize(context.Background(), "hello")
	if err == nil {
		t.Fatal("Synthesize() expected error, got nil")
	}

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("error = %T, want *SynthesisError", err)
	}
	if !strings.Contains(synthErr.Reason, "429") {
		t.Errorf("Reason = %q, want it to contain the status code", synthErr.Reason)
	}
	if synthErr.Detail != "quota exceeded" {
		t.Errorf("Detail = %q, want %q", synthErr.Detail, "quota exceeded")
	}
}

func TestSynthesize_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := newTestClient(endpoint)
	_, err := client.Synthesize(context.Background(), "hello")
	if err == nil {
		t.Fatal("Synthesize() expected error, got nil")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %T, want *TransportError", err)
	}
}

func TestSynthesize_MissingKey(t *testing.T) {
	cfg := &config.Config{
		SpeechRegion:            "southeastasia",
		SpeechVoice:             "th-TH-AcharaNeural",
		SynthesisTimeoutSeconds: 5,
	}
	client := NewAzureClient(cfg)

	_, err := client.Synthesize(context.Background(), "hello")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %T, want *ConfigError", err)
	}
	if cfgErr.Missing != "SPEECH_KEY" {
		t.Errorf("Missing = %q, want SPEECH_KEY", cfgErr.Missing)
	}
}

func TestSynthesize_MissingRegion(t *testing.T) {
	cfg := &config.Config{
		SpeechKey:               "k",
		SpeechVoice:             "th-TH-AcharaNeural",
		SynthesisTimeoutSeconds: 5,
	}
	client := NewAzureClient(cfg)

	_, err := client.Synthesize(context.Background(), "hello")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %T, want *ConfigError", err)
	}
	if cfgErr.Missing != "SPEECH_REGION" {
		t.Errorf("Missing = %q, want SPEECH_REGION", cfgErr.Missing)
	}
}

func TestSynthesize_EmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Synthesize(context.Background(), "hello")

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("error = %T, want *SynthesisError", err)
	}
	if synthErr.Reason != "empty_audio" {
		t.Errorf("Reason = %q, want empty_audio", synthErr.Reason)
	}
}

func TestBuildSSML_EscapesText(t *testing.T) {
	ssml := buildSSML("en-US-JennyNeural", `<hello> & "world"`)
	if strings.Contains(ssml, "<hello>") {
		t.Errorf("SSML contains unescaped markup: %s", ssml)
	}
	if !strings.Contains(ssml, "&lt;hello&gt; &amp; &quot;world&quot;") {
		t.Errorf("SSML missing escaped text: %s", ssml)
	}
}

func TestVoiceLocale(t *testing.T) {
	tests := []struct {
		voice string
		want  string
	}{
		{"th-TH-AcharaNeural", "th-TH"},
		{"en-US-JennyNeural", "en-US"},
		{"de-DE-KatjaNeural", "de-DE"},
		{"broken", "en-US"},
		{"", "en-US"},
	}
	for _, tt := range tests {
		if got := voiceLocale(tt.voice); got != tt.want {
			t.Errorf("voiceLocale(%q) = %q, want %q", tt.voice, got, tt.want)
		}
	}
}
