package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/echolag-barista/server/internal/agent/model"
	errx "github.com/echolag-barista/server/internal/core/error"
	logx "github.com/echolag-barista/server/pkg/logger"
)

// ParseAnalysis decodes a feedback report and normalizes it: scores clamped to
// [0,100], lists forced to 3/3/5 entries, averageScore derived.
func ParseAnalysis(content string) (resp *model.AnalysisResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "analysis_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("analysis parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			resp = nil
		}
	}()

	raw, err := ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var draft model.AnalysisDraft
	if err := dec.Decode(&draft); err != nil {
		return nil, fmt.Errorf("decode analysis %q: %w", snippet(raw), err)
	}
	return draft.Normalize(), nil
}
