// Package engine wires the orchestration components over one store, one billing provider and
// one mailer. A presentation layer holds a single Engine and calls its components directly.
package engine
