package rules

import (
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// rawParams collects the exported parameters of the rule in scope, without prefix.
func rawParams(s *domain.Session) map[string]any {
	out := make(map[string]any)
	for _, key := range s.State.Keys() {
		if !strings.HasPrefix(key, domain.RulePrefix) {
			continue
		}
		v, _ := s.State.Raw(key)
		out[strings.TrimPrefix(key, domain.RulePrefix)] = v
	}
	return out
}

// decodeParams decodes the exported parameters into out after checking that every
// required parameter is present and non-empty.
func decodeParams(s *domain.Session, out any, names ...string) error {
	raw := rawParams(s)

	var missing []string
	for _, name := range names {
		if domain.IsEmpty(raw[name]) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &domain.MissingParamsError{Rule: s.RuleName(), Type: s.RuleType(), Params: missing}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return s.ConfigError("invalid parameters: %v", err)
	}
	return nil
}
