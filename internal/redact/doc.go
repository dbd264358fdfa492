// Package redact masks secrets in code snippets before they are written to a
// report.
//
// Detection uses regex heuristics covering common secret shapes: key and
// password assignments, AWS keys, bearer tokens, URL credentials, JWTs,
// private key blocks and provider-specific tokens (Anthropic, OpenAI,
// GitHub, Slack, Google). For assignments only the value is masked; the
// name it is assigned to is kept.
package redact
