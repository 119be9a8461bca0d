package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	errx "github.com/echolag-barista/server/internal/core/error"
	logx "github.com/echolag-barista/server/pkg/logger"
)

// SynthesisRequest is the body of the text-to-speech endpoint.
type SynthesisRequest struct {
	VoiceID      string `json:"voiceId"`
	Text         string `json:"text"`
	ModelID      string `json:"modelId,omitempty"`
	OutputFormat string `json:"outputFormat,omitempty"`
}

// Client proxies ElevenLabs so the browser never sees the API key.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

// Stream starts synthesis and returns the audio body. The caller must close it.
func (c *Client) Stream(ctx context.Context, in SynthesisRequest) (io.ReadCloser, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	voiceID := ResolveVoice(in.VoiceID, c.cfg.PrimaryVoiceID)
	if voiceID == "" {
		return nil, errx.Validation("voiceId is required.")
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, errx.Validation("text is required.")
	}

	modelID := strings.TrimSpace(in.ModelID)
	if modelID == "" {
		modelID = c.cfg.ModelID
	}
	format := strings.TrimSpace(in.OutputFormat)
	if format == "" {
		format = c.cfg.OutputFormat
	}

	body, err := json.Marshal(map[string]any{
		"text":     in.Text,
		"model_id": modelID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s",
		c.cfg.BaseURL, url.PathEscape(voiceID), url.QueryEscape(format))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseError(resp)
	}

	logx.Debug().
		Str("voice_id", voiceID).
		Str("model", modelID).
		Int("chars", len(in.Text)).
		Msg("text-to-speech stream started")
	return resp.Body, nil
}

// Voices returns the primary voice, or the placeholder list with a reason
// when ElevenLabs is unconfigured, failing, or lacks the primary voice.
func (c *Client) Voices(ctx context.Context) *VoicesResponse {
	if !c.Configured() {
		return fallbackVoices(c.cfg.PrimaryVoiceID, ReasonNotConfigured)
	}

	voices, err := c.listVoices(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("Failed to fetch ElevenLabs voices")
		return fallbackVoices(c.cfg.PrimaryVoiceID, ReasonRequestFailed)
	}

	primary, ok := pickPrimary(voices, c.cfg.PrimaryVoiceID)
	if !ok {
		return fallbackVoices(c.cfg.PrimaryVoiceID, ReasonPrimaryMissing)
	}
	return &VoicesResponse{Voices: []Voice{primary}}
}

func (c *Client) listVoices(ctx context.Context) ([]apiVoice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var out struct {
		Voices []apiVoice `json:"voices"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}
	return out.Voices, nil
}

// parseError reads an ElevenLabs error body, preferring detail.message.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		message = errResp.Detail.Message
	}
	if message == "" {
		message = "Unexpected error from ElevenLabs."
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
