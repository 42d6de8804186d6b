package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/rules"
	"github.com/aretw0/parley/internal/templating"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// DefaultMaxSteps bounds the rules activated automatically in one turn.
const DefaultMaxSteps = 100

// Engine drives turns: it loads the session, dispatches the event and steps
// through rules until one returns control to the channel.
type Engine struct {
	cache      *ConfigCache
	store      ports.StateStore
	resolver   *templating.Resolver
	evaluator  *WeightEvaluator
	controller *rules.Controller
	speech     ports.SpeechRenderer
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	clock      func() time.Time
	maxSteps   int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithResolver sets the template resolver used during activation.
func WithResolver(r *templating.Resolver) EngineOption {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithSpeechRenderer enables audio rendering for requests asking for it.
func WithSpeechRenderer(s ports.SpeechRenderer) EngineOption {
	return func(e *Engine) {
		e.speech = s
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithMaxSteps bounds automatic stepping within a turn.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// NewEngine creates an Engine. The controller dispatches rule types to handlers.
func NewEngine(cache *ConfigCache, store ports.StateStore, controller *rules.Controller, opts ...EngineOption) *Engine {
	e := &Engine{
		cache:      cache,
		store:      store,
		controller: controller,
		logger:     logging.NewNop(),
		clock:      time.Now,
		maxSteps:   DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = templating.New(nil)
	}
	e.evaluator = NewWeightEvaluator(e.resolver)
	return e
}

// Cache exposes the configuration cache.
func (e *Engine) Cache() *ConfigCache {
	return e.cache
}

// turnResult accumulates what the turn tells the channel.
type turnResult struct {
	outcome  rules.Outcome
	messages []string
	steps    int
}

func (r *turnResult) add(o rules.Outcome) {
	if msg := strings.TrimSpace(o.Message); msg != "" {
		r.messages = append(r.messages, msg)
	}
	r.outcome = o
}

// Turn processes one request end to end. The caller serializes turns of the
// same session.
func (e *Engine) Turn(ctx context.Context, req domain.Request) (*domain.Response, error) {
	started := e.clock()
	logger := e.logger.With("session_id", req.SessionID, "event", string(req.EventType))

	res, sess, err := e.turn(ctx, req, logger, started)

	event := &domain.TurnEvent{
		EventBase: domain.EventBase{Timestamp: e.clock(), Kind: domain.HookTurnComplete, SessionID: req.SessionID},
		EventType: req.EventType,
		Duration:  e.clock().Sub(started),
		Err:       err,
	}
	if res != nil {
		event.Steps = res.steps
		event.InputRequired = res.outcome.InputRequired
		event.Terminate = res.outcome.Terminate
	}
	if sess != nil {
		event.RuleSet = sess.State.GetString(domain.KeyCurrentRuleSet)
		event.Rule = sess.State.GetString(domain.KeyCurrentRule)
	}
	if e.hooks.OnTurnComplete != nil {
		e.hooks.OnTurnComplete(ctx, event)
	}

	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			logger.Error("turn failed on configuration", "error", err)
		} else {
			logger.Error("turn failed", "error", err)
		}
		return nil, err
	}
	return e.respond(ctx, req, sess, res, logger)
}

func (e *Engine) turn(ctx context.Context, req domain.Request, logger *slog.Logger, now time.Time) (*turnResult, *domain.Session, error) {
	if req.SessionID == "" {
		return nil, nil, errors.New("session id is required")
	}
	if !req.EventType.Valid() {
		return nil, nil, fmt.Errorf("unknown event type %q", req.EventType)
	}

	cfg, err := e.cache.GetOrLoad(ctx)
	if err != nil {
		return nil, nil, err
	}

	doc, err := e.loadDocument(ctx, cfg, req)
	if err != nil {
		return nil, nil, err
	}

	sess := &domain.Session{
		ID:      req.SessionID,
		Request: &req,
		Config:  cfg,
		State:   doc,
		Now:     now,
		Logger:  logger,
	}
	e.recordRequest(sess, req)
	if err := e.scope(sess); err != nil {
		return nil, sess, err
	}

	res := &turnResult{}
	switch req.EventType {
	case domain.EventHangup:
		doc.Set(domain.KeyTerminating, true)
		res.outcome = rules.Outcome{Terminate: true}
	case domain.EventNew:
		err = e.step(ctx, sess, res)
	case domain.EventResume, domain.EventInput:
		err = e.resume(ctx, sess, req, res)
	}
	if err != nil {
		return nil, sess, err
	}

	if err := e.store.Put(ctx, sess.ID, doc, doc.Dirty()); err != nil {
		return nil, sess, fmt.Errorf("persist session: %w", err)
	}
	doc.ClearDirty()
	return res, sess, nil
}

// loadDocument resets the session for a new contact and loads it otherwise.
func (e *Engine) loadDocument(ctx context.Context, cfg *domain.Config, req domain.Request) (*domain.Document, error) {
	if req.EventType != domain.EventNew {
		doc, err := e.store.Get(ctx, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", req.SessionID, err)
		}
		return doc, nil
	}

	rs, err := cfg.RuleSetForEndPoint(req.EndPoint)
	if err != nil {
		return nil, &domain.ConfigError{Reason: "no entry rule set", Err: err}
	}
	if err := e.store.Delete(ctx, req.SessionID); err != nil {
		return nil, fmt.Errorf("reset session %s: %w", req.SessionID, err)
	}
	doc := domain.NewDocument(nil)
	doc.Set(domain.KeyCurrentRuleSet, rs.Name)
	return doc, nil
}

func (e *Engine) recordRequest(s *domain.Session, req domain.Request) {
	for k, v := range req.ContactAttributes {
		s.State.Set(domain.KeyContactAttributes+"."+k, v)
	}
	system := map[string]any{
		"eventType": string(req.EventType),
		"input":     req.Input,
		"timestamp": s.Now.UTC().Format(time.RFC3339),
	}
	if req.EndPoint != "" {
		system["endPoint"] = req.EndPoint
	} else if ep, ok := s.State.Get(domain.KeySystem + ".endPoint"); ok {
		system["endPoint"] = ep
	}
	s.State.Set(domain.KeySystem, system)
}

// scope resolves the rule set and rule recorded in state onto the session.
func (e *Engine) scope(s *domain.Session) error {
	name := s.State.GetString(domain.KeyCurrentRuleSet)
	if name == "" {
		return &domain.ConfigError{Reason: "session has no current rule set"}
	}
	rs, err := s.Config.RuleSet(name)
	if err != nil {
		return &domain.ConfigError{RuleSet: name, Err: err}
	}
	s.RuleSet = rs
	s.Rule = nil
	if rule := s.State.GetString(domain.KeyCurrentRule); rule != "" {
		if i := rs.IndexOf(rule); i >= 0 {
			s.Rule = &rs.Rules[i]
		}
	}
	s.Logger = e.logger.With("session_id", s.ID, "rule_set", rs.Name, "rule", s.RuleName())
	return nil
}

// resume hands input to the rule awaiting it, then keeps stepping if it lets us.
func (e *Engine) resume(ctx context.Context, s *domain.Session, req domain.Request, res *turnResult) error {
	if s.Phase() == "" {
		if req.EventType == domain.EventInput {
			s.Logger.Debug("input received while no rule awaits it", "input", req.Input)
		}
		if s.Terminating() {
			res.outcome = rules.Outcome{Terminate: true}
			return nil
		}
		return e.step(ctx, s, res)
	}

	input := req.Input
	if req.EventType == domain.EventResume {
		input = domain.InputNoInput
	}
	e.enter(ctx, s)
	out, err := e.controller.Resume(ctx, s, input)
	if err != nil {
		return err
	}
	e.leave(ctx, s, out)
	res.add(out)
	if !out.Continue || domain.IsTerminalType(s.RuleType()) {
		return nil
	}
	return e.step(ctx, s, res)
}

// step is the automatic part of a turn: navigate, activate, execute, repeat
// while rules ask to continue.
func (e *Engine) step(ctx context.Context, s *domain.Session, res *turnResult) error {
	for {
		if res.steps >= e.maxSteps {
			return &domain.ConfigError{RuleSet: s.RuleSetName(), Rule: s.RuleName(),
				Reason: fmt.Sprintf("more than %d rules activated in one turn", e.maxSteps)}
		}
		if err := e.switchRuleSet(s); err != nil {
			return err
		}

		pos, err := NextIndex(s.RuleSet, s.State)
		if err != nil {
			if s.Terminating() {
				res.outcome = rules.Outcome{Terminate: true}
				return nil
			}
			return err
		}

		idx := -1
		if !pos.Pop {
			if idx, err = e.evaluator.FindNextActivated(s.RuleSet, pos.Index, s.State); err != nil {
				return err
			}
		}
		if idx < 0 {
			frame, ok := s.State.PopReturn()
			if !ok {
				if s.Terminating() {
					res.outcome = rules.Outcome{Terminate: true}
					return nil
				}
				return &domain.ConfigError{RuleSet: s.RuleSetName(), Reason: "no activated rule and an empty return stack", Err: domain.ErrNoMoreRules}
			}
			s.Logger.Debug("rule set exhausted, returning", "to_rule_set", frame.RuleSetName, "to_rule", frame.RuleName)
			if err := e.enterRuleSet(s, frame.RuleSetName, frame.RuleName); err != nil {
				return err
			}
			continue
		}

		if err := e.activate(s, idx); err != nil {
			return err
		}
		res.steps++

		e.enter(ctx, s)
		out, err := e.controller.Execute(ctx, s)
		if err != nil {
			return err
		}
		e.leave(ctx, s, out)
		res.add(out)

		if !out.Continue || out.Terminate || domain.IsTerminalType(s.Rule.Type) {
			return nil
		}
	}
}

// switchRuleSet consumes NextRuleSet.
func (e *Engine) switchRuleSet(s *domain.Session) error {
	next := s.State.GetString(domain.KeyNextRuleSet)
	if next == "" {
		return nil
	}
	s.State.Delete(domain.KeyNextRuleSet)
	s.Logger.Debug("switching rule set", "to_rule_set", next)
	return e.enterRuleSet(s, next, "")
}

// enterRuleSet makes name current, positioned after rule (or at the start).
func (e *Engine) enterRuleSet(s *domain.Session, name, rule string) error {
	rs, err := s.Config.RuleSet(name)
	if err != nil {
		return &domain.ConfigError{RuleSet: s.RuleSetName(), Rule: s.RuleName(), Reason: "invalid destination", Err: err}
	}
	PruneRuleState(s.State)
	s.State.Set(domain.KeyCurrentRuleSet, rs.Name)
	if rule == "" {
		s.State.Delete(domain.KeyCurrentRule)
	} else {
		s.State.Set(domain.KeyCurrentRule, rule)
	}
	s.RuleSet = rs
	s.Rule = nil
	if i := rs.IndexOf(rule); i >= 0 {
		s.Rule = &rs.Rules[i]
	}
	s.Logger = e.logger.With("session_id", s.ID, "rule_set", rs.Name)
	return nil
}

// activate prunes the previous rule's state and exports the resolved parameters
// of the rule at idx under the CurrentRule_ prefix.
func (e *Engine) activate(s *domain.Session, idx int) error {
	rule := &s.RuleSet.Rules[idx]
	s.Rule = rule
	s.Logger = e.logger.With("session_id", s.ID, "rule_set", s.RuleSet.Name, "rule", rule.Name)

	PruneRuleState(s.State)
	params, err := e.resolver.ResolveParams(rule.Params, s.State)
	if err != nil {
		return &domain.ConfigError{RuleSet: s.RuleSet.Name, Rule: rule.Name, Type: rule.Type, Reason: "resolve params", Err: err}
	}
	if params, err = ResolveNames(params, &s.Config.Lookups); err != nil {
		var ce *domain.ConfigError
		if errors.As(err, &ce) {
			ce.RuleSet, ce.Rule, ce.Type = s.RuleSet.Name, rule.Name, rule.Type
		}
		return err
	}
	ExportParams(s.State, params)
	s.State.Set(domain.KeyCurrentRule, rule.Name)
	s.State.Set(domain.KeyRuleType, rule.Type)
	s.Logger.Debug("rule activated", "type", rule.Type)
	return nil
}

func (e *Engine) respond(ctx context.Context, req domain.Request, s *domain.Session, res *turnResult, logger *slog.Logger) (*domain.Response, error) {
	resp := &domain.Response{
		SessionID:      s.ID,
		InputRequired:  res.outcome.InputRequired,
		Message:        strings.Join(res.messages, " "),
		Terminate:      res.outcome.Terminate,
		RuleSet:        s.State.GetString(domain.KeyCurrentRuleSet),
		Rule:           s.State.GetString(domain.KeyCurrentRule),
		RuleType:       s.State.GetString(domain.KeyRuleType),
		QueueID:        res.outcome.QueueID,
		ExternalNumber: res.outcome.ExternalNumber,
		State:          s.State.Snapshot(),
	}
	if req.WantAudio && e.speech != nil && resp.Message != "" {
		audio, err := e.speech.Render(ctx, resp.Message)
		if err != nil {
			return nil, fmt.Errorf("render speech: %w", err)
		}
		resp.Audio = audio
	}
	logger.Debug("turn complete", "rule_set", resp.RuleSet, "rule", resp.Rule,
		"input_required", resp.InputRequired, "terminate", resp.Terminate, "steps", res.steps)
	return resp, nil
}

func (e *Engine) enter(ctx context.Context, s *domain.Session) {
	if e.hooks.OnRuleEnter == nil {
		return
	}
	e.hooks.OnRuleEnter(ctx, &domain.RuleEvent{
		EventBase: domain.EventBase{Timestamp: e.clock(), Kind: domain.HookRuleEnter, SessionID: s.ID},
		RuleSet:   s.RuleSetName(),
		Rule:      s.RuleName(),
		RuleType:  s.RuleType(),
		Phase:     s.Phase(),
	})
}

func (e *Engine) leave(ctx context.Context, s *domain.Session, out rules.Outcome) {
	if e.hooks.OnRuleLeave == nil {
		return
	}
	e.hooks.OnRuleLeave(ctx, &domain.RuleEvent{
		EventBase: domain.EventBase{Timestamp: e.clock(), Kind: domain.HookRuleLeave, SessionID: s.ID},
		RuleSet:   s.RuleSetName(),
		Rule:      s.RuleName(),
		RuleType:  s.RuleType(),
		Phase:     s.Phase(),
		Outcome:   out.Label(),
	})
}
