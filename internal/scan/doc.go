// Package scan is the vulnerability scanning pipeline.
//
// A Scanner splits each source file into overlapping chunks, sends every
// chunk to an LLM through a bounded scheduler, parses the reply into findings
// (strict JSON first, a heuristic text extractor second), pins each finding to
// a line by searching the file for its code snippet, and numbers the results
// in a deterministic order.
//
// Chunks of one file are analyzed one after another; different files proceed
// in parallel up to the configured concurrency. Files above the large-file
// threshold are dispatched first. A chunk whose inference fails after retries
// contributes zero findings and is recorded in the report stats; only fatal
// errors (rejected credentials, unknown provider) abort the scan.
//
// Rules packs (rules.go) add focus areas and required checks to the prompt,
// override severities by issue type, and can drop issue types entirely.
package scan
