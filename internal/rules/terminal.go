package rules

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// Message plays a message and returns control to the channel.
type Message struct {
	executeOnly
}

func (h *Message) Execute(_ context.Context, s *domain.Session) (Outcome, error) {
	var p struct {
		Message string `mapstructure:"message"`
	}
	if err := decodeParams(s, &p, required(domain.RuleTypeMessage)...); err != nil {
		return Outcome{}, err
	}
	return Stop(p.Message), nil
}

// Metric emits a named value and continues.
type Metric struct {
	executeOnly
	deps Deps
}

func (h *Metric) Execute(ctx context.Context, s *domain.Session) (Outcome, error) {
	var p struct {
		MetricName  string  `mapstructure:"metricName"`
		MetricValue float64 `mapstructure:"metricValue"`
	}
	if err := decodeParams(s, &p, required(domain.RuleTypeMetric)...); err != nil {
		return Outcome{}, err
	}
	if _, set := s.Param("metricValue"); !set {
		p.MetricValue = 1
	}
	h.deps.Metrics.Emit(ctx, p.MetricName, p.MetricValue)
	return Continue(""), nil
}

// Queue hands the contact to an agent queue.
type Queue struct {
	executeOnly
}

func (h *Queue) Execute(_ context.Context, s *domain.Session) (Outcome, error) {
	var p struct {
		QueueName string `mapstructure:"queueName"`
		QueueID   string `mapstructure:"queueId"`
		Message   string `mapstructure:"message"`
	}
	if err := decodeParams(s, &p, required(domain.RuleTypeQueue)...); err != nil {
		return Outcome{}, err
	}
	if p.QueueID == "" {
		p.QueueID = p.QueueName
	}
	s.State.Set(domain.KeyTerminating, true)
	return Outcome{Message: p.Message, QueueID: p.QueueID}, nil
}

// ExternalNumber transfers the contact to an outside number.
type ExternalNumber struct {
	executeOnly
}

func (h *ExternalNumber) Execute(_ context.Context, s *domain.Session) (Outcome, error) {
	var p struct {
		ExternalNumber string `mapstructure:"externalNumber"`
		Message        string `mapstructure:"message"`
	}
	if err := decodeParams(s, &p, required(domain.RuleTypeExternalNumber)...); err != nil {
		return Outcome{}, err
	}
	s.State.Set(domain.KeyTerminating, true)
	return Outcome{Message: p.Message, ExternalNumber: p.ExternalNumber}, nil
}

// TerminateRule ends the session.
type TerminateRule struct {
	executeOnly
}

func (h *TerminateRule) Execute(_ context.Context, s *domain.Session) (Outcome, error) {
	var p struct {
		Message string `mapstructure:"message"`
	}
	if err := decodeParams(s, &p); err != nil {
		return Outcome{}, err
	}
	s.State.Set(domain.KeyTerminating, true)
	return Terminate(p.Message), nil
}
