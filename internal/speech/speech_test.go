package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	errx "github.com/echolag-barista/server/internal/core/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, key string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: key, BaseURL: srv.URL})
}

func TestResolveVoice(t *testing.T) {
	assert.Equal(t, PrimaryVoiceID, ResolveVoice("callum", PrimaryVoiceID))
	assert.Equal(t, PrimaryVoiceID, ResolveVoice("  Callum ", PrimaryVoiceID))
	assert.Equal(t, "abc", ResolveVoice(" abc ", PrimaryVoiceID))
	assert.Empty(t, ResolveVoice("   ", PrimaryVoiceID))
}

func TestStream_NotConfigured(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.Stream(context.Background(), SynthesisRequest{VoiceID: "callum", Text: "hi"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStream_Validation(t *testing.T) {
	c := NewClient(Config{APIKey: "k"})

	_, err := c.Stream(context.Background(), SynthesisRequest{Text: "hi"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, errx.StatusOf(err))
	assert.Equal(t, "voiceId is required.", errx.MessageOf(err))

	_, err = c.Stream(context.Background(), SynthesisRequest{VoiceID: "callum", Text: "  "})
	require.Error(t, err)
	assert.Equal(t, "text is required.", errx.MessageOf(err))
}

func TestStream_Success(t *testing.T) {
	var gotPath, gotKey, gotFormat string
	var gotBody map[string]any
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		gotFormat = r.URL.Query().Get("output_format")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3audio"))
	})

	body, err := c.Stream(context.Background(), SynthesisRequest{VoiceID: "callum", Text: "One latte, coming up."})
	require.NoError(t, err)
	defer body.Close()
	audio, err := io.ReadAll(body)
	require.NoError(t, err)

	assert.Equal(t, "ID3audio", string(audio))
	assert.Equal(t, "/text-to-speech/"+PrimaryVoiceID+"/stream", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, FormatMP3_44100_128, gotFormat)
	assert.Equal(t, ModelMultilingualV2, gotBody["model_id"])
	assert.Equal(t, "One latte, coming up.", gotBody["text"])
}

func TestStream_ProviderError(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
	})

	_, err := c.Stream(context.Background(), SynthesisRequest{VoiceID: "v1", Text: "hi"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus())
	assert.Equal(t, "Invalid API key", apiErr.Message)
}

func TestStream_ProviderErrorWithoutBody(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Stream(context.Background(), SynthesisRequest{VoiceID: "v1", Text: "hi"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.HTTPStatus())
	assert.Equal(t, "Unexpected error from ElevenLabs.", apiErr.Message)
}

func TestAPIError_HTTPStatusBelow400(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, (&APIError{StatusCode: 302}).HTTPStatus())
}

func TestVoices_NotConfigured(t *testing.T) {
	resp := NewClient(Config{}).Voices(context.Background())
	assert.True(t, resp.Fallback)
	assert.Equal(t, ReasonNotConfigured, resp.Message)
	require.Len(t, resp.Voices, 1)
	assert.Equal(t, PrimaryVoiceID, resp.Voices[0].ID)
	assert.Equal(t, "callum", resp.Voices[0].Labels["persona"])
}

func TestVoices_PrimaryByID(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/voices", r.URL.Path)
		_, _ = w.Write([]byte(`{"voices":[
			{"voice_id":"other","name":"Rachel"},
			{"voice_id":"` + PrimaryVoiceID + `","name":"Callum","category":"premade","labels":{"accent":"american"}}
		]}`))
	})

	resp := c.Voices(context.Background())
	assert.False(t, resp.Fallback)
	require.Len(t, resp.Voices, 1)
	assert.Equal(t, PrimaryVoiceID, resp.Voices[0].ID)
	assert.Equal(t, "premade", resp.Voices[0].Category)
	assert.Equal(t, "american", resp.Voices[0].Labels["accent"])
}

func TestVoices_PrimaryByName(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"voices":[{"id":"renamed","name":"callum"}]}`))
	})

	resp := c.Voices(context.Background())
	assert.False(t, resp.Fallback)
	assert.Equal(t, "renamed", resp.Voices[0].ID)
}

func TestVoices_PrimaryMissing(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"voices":[{"voice_id":"other","name":"Rachel"}]}`))
	})

	resp := c.Voices(context.Background())
	assert.True(t, resp.Fallback)
	assert.Equal(t, ReasonPrimaryMissing, resp.Message)
}

func TestVoices_RequestFailed(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	resp := c.Voices(context.Background())
	assert.True(t, resp.Fallback)
	assert.Equal(t, ReasonRequestFailed, resp.Message)
	assert.Len(t, resp.Voices, 1)
}
