// Package llm provides an OpenAI-compatible chat client used for transcript
// extraction, call summaries, and the optional LLM-driven intake mode.
//
// Every request runs in JSON mode. The client retries on HTTP 408/429/5xx,
// network timeouts, and empty completions with exponential backoff; context
// cancellation aborts retries immediately. DecodeLLMJSON tolerates code
// fences and surrounding prose.
//
// Callers treat every failure as recoverable and fall back to rule-based
// behaviour, so nothing in the call pipeline blocks on the LLM.
package llm
