/*
Package rules implements the rule-type handlers of the dialogue engine.

Every rule type implements the same three-operation Handler contract:

  - Execute runs when the rule activates. It validates the rule's parameters and either
    produces a final Outcome or puts the session in the "input" phase.
  - Input receives customer input while the phase is "input".
  - Confirm receives the answer to a yes/no confirmation while the phase is "confirm".

Handlers read their configuration from the CurrentRule_* keys of the session state,
never from the rule definition, so a resumed turn behaves exactly like the turn that
activated the rule. Invalid input is not an error: it is counted and escalated.
*/
package rules
