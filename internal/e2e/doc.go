// Package e2e holds end-to-end tests that run the whole inferd stack
// in-process against a fake OpenAI-compatible upstream.
package e2e
