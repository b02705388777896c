package hclconfig

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// decodeSettings turns the free-form attributes of an agent's settings block
// into a plain map. The core never interprets these values, so they go
// through cty's JSON bridge into untyped Go values and each agent module
// decodes what it needs at registration time.
func decodeSettings(body hcl.Body) (map[string]any, error) {
	if body == nil {
		return nil, nil
	}

	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read settings attributes: %w", diags)
	}
	if len(attrs) == 0 {
		return nil, nil
	}

	settings := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate setting '%s': %w", name, diags)
		}
		decoded, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("setting '%s': %w", name, err)
		}
		settings[name] = decoded
	}
	return settings, nil
}

// ctyToGo converts a cty.Value into the equivalent untyped Go value by round
// tripping through cty's JSON encoding.
func ctyToGo(val cty.Value) (any, error) {
	raw, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}
