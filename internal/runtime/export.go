package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

type nameLookup struct {
	param  string
	target string
	table  func(*domain.Lookups) map[string]string
}

var nameLookups = []nameLookup{
	{"queueName", "queueId", func(l *domain.Lookups) map[string]string { return l.Queues }},
	{"botName", "botId", func(l *domain.Lookups) map[string]string { return l.Bots }},
	{"functionName", "functionId", func(l *domain.Lookups) map[string]string { return l.Functions }},
	{"flowName", "flowId", func(l *domain.Lookups) map[string]string { return l.ContactFlows }},
	{"promptName", "promptId", func(l *domain.Lookups) map[string]string { return l.Prompts }},
}

// PruneRuleState removes every CurrentRule_* key and returns the removed keys.
func PruneRuleState(doc *domain.Document) []string {
	return doc.DeletePrefix(domain.RulePrefix)
}

// ExportParams writes params under the CurrentRule_ prefix and returns the keys written.
// Absent values and names that are not a single path segment are skipped.
func ExportParams(doc *domain.Document, params map[string]any) []string {
	var written []string
	for name, v := range params {
		if strings.Contains(name, ".") {
			continue
		}
		key := domain.RulePrefix + name
		if doc.Set(key, v) {
			written = append(written, key)
		}
	}
	return written
}

// ResolveNames adds deployment identifiers for parameters naming resources.
// A name missing from its lookup table is a configuration error.
func ResolveNames(params map[string]any, lookups *domain.Lookups) (map[string]any, error) {
	for _, nl := range nameLookups {
		name := strings.TrimSpace(domain.ToString(params[nl.param]))
		if name == "" {
			continue
		}
		id, ok := nl.table(lookups)[name]
		if !ok || id == "" {
			return nil, &domain.ConfigError{Reason: fmt.Sprintf("unknown %s %q", nl.param, name)}
		}
		params[nl.target] = id
	}
	return params, nil
}
