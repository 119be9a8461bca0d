package model

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	errx "github.com/echolag-barista/server/internal/core/error"
)

const (
	StrengthsCount           = 3
	GrowthOpportunitiesCount = 3
	TipsCount                = 5

	FallbackScore = 75
)

const FallbackSummary = "Great work keeping the conversation flowing. You sounded friendly and professional—keep building on that momentum for even stronger sessions."

var (
	FallbackStrengths = []string{
		"Welcoming tone that helps customers feel at ease right away",
		"Clear structure when confirming drink, size, and name details",
		"Steady pacing that keeps the interaction calm and confident",
	}
	FallbackGrowthOpportunities = []string{
		"Double-check milk or flavor preferences to avoid assumptions",
		"Slow the pace slightly when pronouncing names to improve clarity",
		"Use upbeat reinforcement like “Excellent choice!” to boost energy",
	}
	FallbackTips = []string{
		"Smile as you speak—listeners can hear the warmth instantly",
		"Echo key order details and invite quick confirmation",
		"Pause briefly after each detail so the guest can respond comfortably",
		"Wrap up with a confident recap and friendly send-off",
		"Practice aloud for one minute daily to smooth pacing and clarity",
	}
)

// Metric is a speech metric that never fails to decode. Numbers and numeric
// strings are kept; anything else becomes 0.
type Metric float64

func (m *Metric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		*m = 0
		return nil
	}
	*m = Metric(ToFloat(v))
	return nil
}

// Value returns m coerced into a finite, non-negative float.
func (m Metric) Value() float64 {
	f := float64(m)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// AnalysisRequest is the end-of-session payload.
type AnalysisRequest struct {
	Transcript     string `json:"transcript"`
	Duration       Metric `json:"duration"`
	WordCount      Metric `json:"wordCount"`
	WordsPerMinute Metric `json:"wordsPerMinute"`
	AveragePause   Metric `json:"averagePause"`
}

// Validate rejects an empty transcript and coerces every metric.
func (r *AnalysisRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.Transcript) == "" {
		return errx.Validation(errx.TranscriptRequiredMessage)
	}
	r.Duration = Metric(r.Duration.Value())
	r.WordCount = Metric(r.WordCount.Value())
	r.WordsPerMinute = Metric(r.WordsPerMinute.Value())
	r.AveragePause = Metric(r.AveragePause.Value())
	return nil
}

// AnalysisResponse is the feedback report. Lists always have 3/3/5 entries and
// every score is in [0,100].
type AnalysisResponse struct {
	OverallSummary      string   `json:"overallSummary"`
	Strengths           []string `json:"strengths"`
	GrowthOpportunities []string `json:"growthOpportunities"`
	Tips                []string `json:"tips"`
	ClarityScore        int      `json:"clarityScore"`
	PronunciationScore  int      `json:"pronunciationScore"`
	FluencyScore        int      `json:"fluencyScore"`
	AverageScore        int      `json:"averageScore"`
	Fallback            bool     `json:"fallback"`
}

// FallbackAnalysis returns the canned report shown when the model cannot help.
func FallbackAnalysis() *AnalysisResponse {
	return &AnalysisResponse{
		OverallSummary:      FallbackSummary,
		Strengths:           append([]string(nil), FallbackStrengths...),
		GrowthOpportunities: append([]string(nil), FallbackGrowthOpportunities...),
		Tips:                append([]string(nil), FallbackTips...),
		ClarityScore:        FallbackScore,
		PronunciationScore:  FallbackScore,
		FluencyScore:        FallbackScore,
		AverageScore:        AverageScore(FallbackScore, FallbackScore, FallbackScore),
		Fallback:            true,
	}
}

// AnalysisDraft is the loosely typed report as the model produced it.
type AnalysisDraft struct {
	OverallSummary      any `json:"overallSummary"`
	Strengths           any `json:"strengths"`
	GrowthOpportunities any `json:"growthOpportunities"`
	Tips                any `json:"tips"`
	ClarityScore        any `json:"clarityScore"`
	PronunciationScore  any `json:"pronunciationScore"`
	FluencyScore        any `json:"fluencyScore"`
}

// Normalize turns a draft into a well-formed report.
func (d AnalysisDraft) Normalize() *AnalysisResponse {
	summary, _ := d.OverallSummary.(string)
	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = FallbackSummary
	}

	clarity := ClampScore(d.ClarityScore)
	pronunciation := ClampScore(d.PronunciationScore)
	fluency := ClampScore(d.FluencyScore)

	return &AnalysisResponse{
		OverallSummary:      summary,
		Strengths:           NormalizeList(d.Strengths, FallbackStrengths, StrengthsCount),
		GrowthOpportunities: NormalizeList(d.GrowthOpportunities, FallbackGrowthOpportunities, GrowthOpportunitiesCount),
		Tips:                NormalizeList(d.Tips, FallbackTips, TipsCount),
		ClarityScore:        clarity,
		PronunciationScore:  pronunciation,
		FluencyScore:        fluency,
		AverageScore:        AverageScore(clarity, pronunciation, fluency),
	}
}

// ClampScore rounds v to the nearest integer in [0,100]. Non-numeric values are 0.
func ClampScore(v any) int {
	f := ToFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Round(f)
	switch {
	case f < 0:
		return 0
	case f > 100:
		return 100
	default:
		return int(f)
	}
}

// AverageScore is round(mean(scores)).
func AverageScore(scores ...int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return int(math.Round(float64(sum) / float64(len(scores))))
}

// NormalizeList keeps non-blank strings from v, truncates to n and pads from fallback.
func NormalizeList(v any, fallback []string, n int) []string {
	out := make([]string, 0, n)
	if items, ok := v.([]any); ok {
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			if len(out) == n {
				return out
			}
		}
	}
	for len(out) < n && len(fallback) > 0 {
		out = append(out, fallback[len(out)%len(fallback)])
	}
	return out
}

// ToFloat converts JSON-decoded numbers and numeric strings to float64; any
// other value is 0.
func ToFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// AnalysisCache stores finished reports. Get returns (nil, nil) on a miss.
type AnalysisCache interface {
	Get(ctx context.Context, key string) (*AnalysisResponse, error)
	Set(ctx context.Context, key string, resp *AnalysisResponse) error
}

// AnalysisCacheKey hashes the transcript and coerced metrics, so identical
// sessions share a report.
func AnalysisCacheKey(req AnalysisRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%g\x00%g\x00%g\x00%g",
		strings.TrimSpace(req.Transcript),
		req.Duration.Value(),
		req.WordCount.Value(),
		req.WordsPerMinute.Value(),
		req.AveragePause.Value(),
	)
	return hex.EncodeToString(h.Sum(nil))
}
