// Package backend adapts text generation providers behind one interface.
//
// Files are organized by concern:
//   - backend.go: Backend interface, Config and the New constructor.
//   - errors.go: typed *Error values and the Is* helpers.
//   - stub.go: canned responder for local development.
//   - openai.go: OpenAI-compatible chat completions (Gemini by default).
//   - llama.go / llama_stub.go: in-process llama.cpp, built with -tags=llama.
//   - instrument.go: metrics and tracing wrapper.
package backend
