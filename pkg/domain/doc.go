/*
Package domain contains the core domain models of the parley dialogue engine.

It defines the declarative configuration (rule sets, rules and activation weights), the
per-session state document and the turn-level request/response shapes. The package is kept
free of I/O and persistence concerns, following Hexagonal Architecture principles.

# Key Entities

  - Document: the nested, dirty-tracked state tree of a single session.
  - RuleSet: a named, ordered list of rules; the unit of dialogue composition.
  - Rule: a single activatable step with a type, parameters and weights.
  - Session: the ephemeral per-turn context handed to rule handlers.
  - Request/Response: what the channel sends in and gets back for one turn.
*/
package domain
