package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolag-barista/server/internal/agent/agenttest"
	"github.com/echolag-barista/server/internal/agent/graph"
	"github.com/echolag-barista/server/internal/agent/graph/nodes"
	"github.com/echolag-barista/server/internal/agent/model"
	"github.com/echolag-barista/server/internal/core"
	errx "github.com/echolag-barista/server/internal/core/error"
	"github.com/echolag-barista/server/internal/speech"
	logx "github.com/echolag-barista/server/pkg/logger"
)

func TestMain(m *testing.M) {
	logx.Disable()
	os.Exit(m.Run())
}

type fakeRunner struct {
	fn func(ctx context.Context, req model.ConversationRequest) (*model.ConversationResponse, error)
}

func (f *fakeRunner) Invoke(ctx context.Context, req model.ConversationRequest) (*model.ConversationResponse, error) {
	return f.fn(ctx, req)
}

type fakeAnalyzer struct {
	fn func(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResponse, error)
}

func (f *fakeAnalyzer) AnalyzeOrFallback(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResponse, error) {
	return f.fn(ctx, req)
}

type fakeSpeech struct {
	streamErr error
	audio     string
	voices    *speech.VoicesResponse
	lastReq   speech.SynthesisRequest
}

func (f *fakeSpeech) Stream(_ context.Context, req speech.SynthesisRequest) (io.ReadCloser, error) {
	f.lastReq = req
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return io.NopCloser(strings.NewReader(f.audio)), nil
}

func (f *fakeSpeech) Voices(context.Context) *speech.VoicesResponse {
	return f.voices
}

func newTestRouter(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	if deps.Conversation == nil {
		deps.Conversation = &fakeRunner{fn: func(context.Context, model.ConversationRequest) (*model.ConversationResponse, error) {
			t.Fatal("unexpected conversation call")
			return nil, nil
		}}
	}
	if deps.Analyzer == nil {
		deps.Analyzer = &fakeAnalyzer{fn: func(context.Context, model.AnalysisRequest) (*model.AnalysisResponse, error) {
			t.Fatal("unexpected analyzer call")
			return nil, nil
		}}
	}
	if deps.Speech == nil {
		deps.Speech = &fakeSpeech{}
	}
	return NewRouter(Config{Environment: core.Production, AllowedOrigins: []string{"http://localhost:3000"}}, deps)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRootHealthAndReset(t *testing.T) {
	h := newTestRouter(t, Deps{})

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EchoLag Barista API", decode(t, rec)["message"])

	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/api/reset", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Conversation reset successfully", decode(t, rec)["message"])
}

func TestNotFound(t *testing.T) {
	rec := do(t, newTestRouter(t, Deps{}), http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Not Found", body["error"])
	assert.Equal(t, "/api/nope", body["path"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestRouter(t, Deps{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "echolag_")
}

func TestConversation_PassesRequestThrough(t *testing.T) {
	var got model.ConversationRequest
	var turnID string
	runner := &fakeRunner{fn: func(ctx context.Context, req model.ConversationRequest) (*model.ConversationResponse, error) {
		got = req
		turnID = model.TurnIDFrom(ctx)
		s := model.OrderState{Drink: true}
		return &model.ConversationResponse{Message: "What size?", OrderState: &s}, nil
	}}
	h := newTestRouter(t, Deps{Conversation: runner})

	rec := do(t, h, http.MethodPost, "/api/conversation",
		`{"userMessage":"A latte please","orderState":{"drink":false,"size":false,"milk":false,"name":false},"conversationHistory":[]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A latte please", got.UserMessage)
	assert.NotEmpty(t, turnID)

	body := decode(t, rec)
	assert.Equal(t, "What size?", body["message"])
	assert.Equal(t, true, body["orderState"].(map[string]any)["drink"])
}

func TestConversation_ValidationError(t *testing.T) {
	runner := &fakeRunner{fn: func(context.Context, model.ConversationRequest) (*model.ConversationResponse, error) {
		return nil, errx.Validation(errx.MissingFieldsMessage)
	}}
	rec := do(t, newTestRouter(t, Deps{Conversation: runner}), http.MethodPost, "/api/conversation", `{"userMessage":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", decode(t, rec)["error"])
}

func TestConversation_InternalErrorIsGeneric(t *testing.T) {
	runner := &fakeRunner{fn: func(context.Context, model.ConversationRequest) (*model.ConversationResponse, error) {
		return nil, errors.New("redis down at 10.0.0.3")
	}}
	rec := do(t, newTestRouter(t, Deps{Conversation: runner}), http.MethodPost, "/api/conversation", `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errx.SystemErrorMessage, decode(t, rec)["error"])
}

func TestConversation_MalformedJSON(t *testing.T) {
	rec := do(t, newTestRouter(t, Deps{}), http.MethodPost, "/api/conversation", `{"userMessage":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errx.InvalidBodyMessage, decode(t, rec)["error"])
}

func TestConversation_BodyTooLarge(t *testing.T) {
	big := `{"userMessage":"` + strings.Repeat("a", MaxBodyBytes+1) + `"}`
	rec := do(t, newTestRouter(t, Deps{}), http.MethodPost, "/api/conversation", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestConversation_EndToEndWithGraph(t *testing.T) {
	runner, err := graph.BuildGraph(context.Background(), &graph.GraphConfig{
		ChatModels: &nodes.ChatModels{
			Dialogue:  agenttest.Reply("Great choice! What size would you like?"),
			Extractor: agenttest.Reply(`{"drink": true, "size": false, "milk": false, "name": false}`),
		},
		Conversation: model.ConversationConfig{LLMTimeout: 2 * time.Second},
	})
	require.NoError(t, err)
	h := newTestRouter(t, Deps{Conversation: runner})

	rec := do(t, h, http.MethodPost, "/api/conversation",
		`{"userMessage":"I'd like a latte","orderState":{"drink":false,"size":false,"milk":false,"name":false},"conversationHistory":[]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Great choice! What size would you like?", resp.Message)
	require.NotNil(t, resp.OrderState)
	assert.Equal(t, model.OrderState{Drink: true}, *resp.OrderState)
}

func TestConversation_EndToEndConfigApology(t *testing.T) {
	runner, err := graph.BuildGraph(context.Background(), &graph.GraphConfig{
		ChatModels: &nodes.ChatModels{
			Dialogue:  agenttest.Fail(errors.New("Error 404, Message: models/gemini-x is not found, Status: NOT_FOUND")),
			Extractor: agenttest.Reply(`{"drink": true}`),
		},
		Conversation: model.ConversationConfig{LLMTimeout: 2 * time.Second},
	})
	require.NoError(t, err)

	rec := do(t, newTestRouter(t, Deps{Conversation: runner}), http.MethodPost, "/api/conversation",
		`{"userMessage":"latte","orderState":{"drink":false,"size":true,"milk":false,"name":false}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, graph.ConfigApology, resp.Message)
	assert.Equal(t, model.OrderState{Size: true}, *resp.OrderState)
}

func TestAnalyzeSession(t *testing.T) {
	var got model.AnalysisRequest
	analyzer := &fakeAnalyzer{fn: func(_ context.Context, req model.AnalysisRequest) (*model.AnalysisResponse, error) {
		got = req
		return model.FallbackAnalysis(), nil
	}}
	rec := do(t, newTestRouter(t, Deps{Analyzer: analyzer}), http.MethodPost, "/api/analyze-session",
		`{"transcript":"Customer: latte","duration":60,"wordCount":"42","wordsPerMinute":42,"averagePause":0.5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Customer: latte", got.Transcript)
	body := decode(t, rec)
	assert.Equal(t, float64(75), body["averageScore"])
	assert.Equal(t, true, body["fallback"])
}

func TestAnalyzeSession_TranscriptRequired(t *testing.T) {
	analyzer := &fakeAnalyzer{fn: func(_ context.Context, req model.AnalysisRequest) (*model.AnalysisResponse, error) {
		return nil, req.Validate()
	}}
	rec := do(t, newTestRouter(t, Deps{Analyzer: analyzer}), http.MethodPost, "/api/analyze-session", `{"transcript":"  "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errx.TranscriptRequiredMessage, decode(t, rec)["error"])
}

func TestTextToSpeech_Streams(t *testing.T) {
	sp := &fakeSpeech{audio: "ID3-mpeg-bytes"}
	rec := do(t, newTestRouter(t, Deps{Speech: sp}), http.MethodPost, "/api/elevenlabs/text-to-speech",
		`{"voiceId":"callum","text":"Hi there"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ID3-mpeg-bytes", rec.Body.String())
	assert.Equal(t, "callum", sp.lastReq.VoiceID)
}

func TestTextToSpeech_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not configured", speech.ErrNotConfigured, http.StatusServiceUnavailable, speech.ErrNotConfigured.Error()},
		{"validation", errx.Validation("text is required."), http.StatusBadRequest, "text is required."},
		{"provider", &speech.APIError{StatusCode: 429, Message: "quota exceeded"}, http.StatusTooManyRequests, "quota exceeded"},
		{"network", errors.New("dial tcp: timeout"), http.StatusInternalServerError, "Unexpected error from ElevenLabs."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := &fakeSpeech{streamErr: tt.err}
			rec := do(t, newTestRouter(t, Deps{Speech: sp}), http.MethodPost, "/api/elevenlabs/text-to-speech",
				`{"voiceId":"callum","text":"Hi"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decode(t, rec)["error"])
		})
	}
}

func TestVoices(t *testing.T) {
	sp := &fakeSpeech{voices: &speech.VoicesResponse{
		Voices:   speech.PlaceholderVoices(speech.PrimaryVoiceID),
		Fallback: true,
		Message:  speech.ReasonNotConfigured,
	}}
	rec := do(t, newTestRouter(t, Deps{Speech: sp}), http.MethodGet, "/api/elevenlabs/voices", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["fallback"])
	assert.Equal(t, speech.ReasonNotConfigured, body["message"])
	assert.Len(t, body["voices"], 1)
}

func TestPanicRecovery(t *testing.T) {
	runner := &fakeRunner{fn: func(context.Context, model.ConversationRequest) (*model.ConversationResponse, error) {
		panic("boom")
	}}
	rec := do(t, newTestRouter(t, Deps{Conversation: runner}), http.MethodPost, "/api/conversation", `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errx.SystemErrorMessage, decode(t, rec)["error"])
}

func TestCORS_Preflight(t *testing.T) {
	h := newTestRouter(t, Deps{})
	req := httptest.NewRequest(http.MethodOptions, "/api/conversation", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/conversation", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	h := NewRouter(Config{RateLimitPerMinute: 2}, Deps{
		Conversation: &fakeRunner{},
		Analyzer:     &fakeAnalyzer{},
		Speech:       &fakeSpeech{},
	})

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/api/reset", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/reset", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, decode(t, rec)["error"])

	// Health is outside the limited group.
	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteAppError_ExposesDetailsInDevelopment(t *testing.T) {
	rec := httptest.NewRecorder()
	writeAppError(rec, core.Development, errors.New("upstream ?key=abc failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	msg := decode(t, rec)["error"].(string)
	assert.Contains(t, msg, "upstream")
	assert.NotContains(t, msg, "abc")
}
