// Package runtime is the dialogue interpreter: it scores rule weights, navigates rule
// sets and the return stack, and steps a session turn by turn through the rule handlers.
package runtime
