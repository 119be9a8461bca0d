package speech

import "time"

const (
	// PrimaryVoiceID is the ElevenLabs "Callum" voice used by the practice app.
	PrimaryVoiceID   = "zZLmKvCp1i04X8E0FJ8B"
	PrimaryVoiceName = "Callum"

	ModelMultilingualV2 = "eleven_multilingual_v2"
	FormatMP3_44100_128 = "mp3_44100_128"
)

type Config struct {
	APIKey         string        `envconfig:"ELEVENLABS_API_KEY"`
	BaseURL        string        `envconfig:"ELEVENLABS_BASE_URL" default:"https://api.elevenlabs.io/v1"`
	PrimaryVoiceID string        `envconfig:"ELEVENLABS_PRIMARY_VOICE_ID" default:"zZLmKvCp1i04X8E0FJ8B"`
	ModelID        string        `envconfig:"ELEVENLABS_MODEL_ID" default:"eleven_multilingual_v2"`
	OutputFormat   string        `envconfig:"ELEVENLABS_OUTPUT_FORMAT" default:"mp3_44100_128"`
	Timeout        time.Duration `envconfig:"ELEVENLABS_TIMEOUT" default:"30s"`
}

// Configured reports whether an API key is present.
func (c Config) Configured() bool {
	return c.APIKey != ""
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.elevenlabs.io/v1"
	}
	if c.PrimaryVoiceID == "" {
		c.PrimaryVoiceID = PrimaryVoiceID
	}
	if c.ModelID == "" {
		c.ModelID = ModelMultilingualV2
	}
	if c.OutputFormat == "" {
		c.OutputFormat = FormatMP3_44100_128
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}
