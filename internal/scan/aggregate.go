package scan

// Aggregate flattens finding batches, already in dispatch order, and numbers
// the result 1..N. Nothing is dropped or merged.
func Aggregate(batches [][]Finding) []Finding {
	n := 0
	for _, b := range batches {
		n += len(b)
	}
	out := make([]Finding, 0, n)
	for _, b := range batches {
		for _, f := range b {
			f.ID = len(out) + 1
			out = append(out, f)
		}
	}
	return out
}

// collect walks lanes in dispatch order and gathers findings and stats.
func collect(lanes []*lane, rules *Rules) ([]Finding, Stats, []ChunkFailure, int64) {
	var (
		batches  [][]Finding
		stats    Stats
		failures []ChunkFailure
		llmMs    int64
	)
	for _, l := range lanes {
		for _, r := range l.results {
			stats.Attempts += r.attempts
			llmMs += r.llmMs
			if r.cached {
				stats.CacheHits++
			}
			if r.fallback {
				stats.FallbackParses++
			}
			if r.failure != nil {
				failures = append(failures, *r.failure)
				if r.failure.Stage == stageInference {
					stats.ChunksFailed++
				} else {
					stats.UnparsedChunks++
				}
			}
			batches = append(batches, rules.Apply(r.findings))
		}
	}
	return Aggregate(batches), stats, failures, llmMs
}
