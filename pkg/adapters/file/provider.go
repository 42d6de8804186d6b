package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// document is the top-level shape of a rules file. A file holding a single rule set
// (a mapping with a "rules" key) is accepted as well.
type document struct {
	RuleSets []map[string]any `mapstructure:"ruleSets"`
	Lookups  domain.Lookups   `mapstructure:"lookups"`
}

// Provider implements ports.ConfigProvider over YAML files. Path may name a single
// file or a directory whose *.yaml and *.yml files are merged in name order.
// The newest modification time among them is reported as LastChangedAt.
type Provider struct {
	Path string

	mu       sync.Mutex
	loadedAt time.Time
	ruleSets []domain.RuleSet
	lookups  domain.Lookups
}

// NewProvider creates a provider reading from path.
func NewProvider(path string) *Provider {
	return &Provider{Path: path}
}

// LastChangedAt returns the newest modification time of the rule files.
func (p *Provider) LastChangedAt(ctx context.Context) (time.Time, error) {
	files, err := p.files()
	if err != nil {
		return time.Time{}, err
	}
	var newest time.Time
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to stat %s: %w", f, err)
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return newest, nil
}

// RuleSets returns every rule set declared in the rule files.
func (p *Provider) RuleSets(ctx context.Context) ([]domain.RuleSet, error) {
	if err := p.refresh(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.RuleSet, len(p.ruleSets))
	copy(out, p.ruleSets)
	return out, nil
}

// Lookups returns the merged lookup tables.
func (p *Provider) Lookups(ctx context.Context) (domain.Lookups, error) {
	if err := p.refresh(ctx); err != nil {
		return domain.Lookups{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookups, nil
}

// refresh re-parses the files when they changed since the last parse.
func (p *Provider) refresh(ctx context.Context) error {
	changed, err := p.LastChangedAt(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loadedAt.IsZero() && !changed.After(p.loadedAt) {
		return nil
	}

	files, err := p.files()
	if err != nil {
		return err
	}
	var ruleSets []domain.RuleSet
	var lookups domain.Lookups
	for _, f := range files {
		sets, lk, err := parseFile(f)
		if err != nil {
			return err
		}
		ruleSets = append(ruleSets, sets...)
		mergeLookups(&lookups, lk)
	}

	p.ruleSets = ruleSets
	p.lookups = lookups
	p.loadedAt = changed
	return nil
}

func (p *Provider) files() ([]string, error) {
	info, err := os.Stat(p.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat rules path: %w", err)
	}
	if !info.IsDir() {
		return []string{p.Path}, nil
	}

	entries, err := os.ReadDir(p.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files = append(files, filepath.Join(p.Path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func parseFile(path string) ([]domain.RuleSet, domain.Lookups, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.Lookups{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	sets, lookups, err := Parse(raw)
	if err != nil {
		return nil, domain.Lookups{}, fmt.Errorf("%s: %w", path, err)
	}
	return sets, lookups, nil
}

// Parse decodes a YAML rules document. Scalars are weakly typed, so "10" is
// accepted for a weight and "true" for a boolean. Rule sets are enabled unless
// they say otherwise.
func Parse(raw []byte) ([]domain.RuleSet, domain.Lookups, error) {
	var top map[string]any
	if err := yaml.Unmarshal(raw, &top); err != nil {
		return nil, domain.Lookups{}, fmt.Errorf("invalid yaml: %w", err)
	}
	if top == nil {
		return nil, domain.Lookups{}, nil
	}

	var doc document
	if _, single := top["rules"]; single {
		doc.RuleSets = []map[string]any{top}
	} else if err := decode(top, &doc); err != nil {
		return nil, domain.Lookups{}, err
	}

	sets := make([]domain.RuleSet, 0, len(doc.RuleSets))
	for i, m := range doc.RuleSets {
		var rs domain.RuleSet
		if err := decode(m, &rs); err != nil {
			return nil, domain.Lookups{}, fmt.Errorf("rule set %d: %w", i, err)
		}
		if _, ok := m["enabled"]; !ok {
			rs.Enabled = true
		}
		for j := range rs.Rules {
			rs.Rules[j].Params = normalizeParams(rs.Rules[j].Params)
		}
		sets = append(sets, rs)
	}
	return sets, doc.Lookups, nil
}

func decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	return nil
}

// normalizeParams converts YAML-decoded values into the JSON shapes the engine stores.
func normalizeParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = domain.Normalize(v)
	}
	return out
}

func mergeLookups(dst *domain.Lookups, src domain.Lookups) {
	merge := func(d *map[string]string, s map[string]string) {
		if len(s) == 0 {
			return
		}
		if *d == nil {
			*d = make(map[string]string, len(s))
		}
		for k, v := range s {
			(*d)[k] = v
		}
	}
	merge(&dst.ContactFlows, src.ContactFlows)
	merge(&dst.Prompts, src.Prompts)
	merge(&dst.Queues, src.Queues)
	merge(&dst.Bots, src.Bots)
	merge(&dst.Functions, src.Functions)
}
