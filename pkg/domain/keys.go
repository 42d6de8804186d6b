package domain

// State keys maintained by the engine inside the session Document.
const (
	KeyCurrentRuleSet       = "CurrentRuleSet"
	KeyCurrentRule          = "CurrentRule"
	KeyNextRuleSet          = "NextRuleSet"
	KeyReturnStack          = "ReturnStack"
	KeyIntegrationStatus    = "IntegrationStatus"
	KeyIntegrationRequestID = "IntegrationRequestId"
	KeyContactAttributes    = "ContactAttributes"
	KeyTerminating          = "Terminating"
	KeySystem               = "System"

	// RulePrefix scopes turn-local rule state. Everything under it is pruned when
	// the next rule activates.
	RulePrefix = "CurrentRule_"

	KeyPhase      = RulePrefix + "phase"
	KeyErrorCount = RulePrefix + "errorCount"
	KeyCaptured   = RulePrefix + "captured"
	KeyRuleType   = RulePrefix + "ruleType"
)

// Phases of an input-capturing rule.
const (
	PhaseInput   = "input"
	PhaseConfirm = "confirm"
)

// Input sentinels sent by the channel instead of customer text.
const (
	InputNoInput = "NOINPUT"
	InputNoMatch = "NOMATCH"
)

// Synthetic intents produced for the input sentinels.
const (
	IntentNoData   = "nodata"
	IntentFallback = "fallback"
)

// Integration status values stored under KeyIntegrationStatus.
const (
	IntegrationStart   = "START"
	IntegrationDone    = "DONE"
	IntegrationError   = "ERROR"
	IntegrationTimeout = "TIMEOUT"
)

// ReturnFrame is one entry of the return stack.
type ReturnFrame struct {
	RuleSetName string `json:"ruleSetName" mapstructure:"ruleSetName"`
	RuleName    string `json:"ruleName" mapstructure:"ruleName"`
}
