// Package model defines the minimal language model interface used to back
// expansion and evaluation activities, together with a deterministic mock
// for tests and examples. Provider adapters live in the subpackages openai
// and anthropic.
package model
