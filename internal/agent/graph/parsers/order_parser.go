package parsers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/echolag-barista/server/internal/agent/model"
	errx "github.com/echolag-barista/server/internal/core/error"
	logx "github.com/echolag-barista/server/pkg/logger"
)

// ParseOrderState decodes the extractor's answer. Fields that are missing or
// not a recognizable boolean stay nil ("not asserted").
func ParseOrderState(content string) (out *model.PartialOrderState, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "order_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("order parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			out = nil
		}
	}()

	raw, err := ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode order state %q: %w", snippet(raw), err)
	}

	out = &model.PartialOrderState{}
	for k, v := range fields {
		b := looseBool(v)
		switch model.OrderField(strings.ToLower(strings.TrimSpace(k))) {
		case model.FieldDrink:
			out.Drink = b
		case model.FieldSize:
			out.Size = b
		case model.FieldMilk:
			out.Milk = b
		case model.FieldName:
			out.Name = b
		}
	}
	return out, nil
}

func looseBool(v any) *bool {
	switch t := v.(type) {
	case bool:
		return model.Bool(t)
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes":
			return model.Bool(true)
		case "false", "no":
			return model.Bool(false)
		}
	}
	return nil
}
