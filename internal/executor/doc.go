// Package executor evaluates symbolic graphs against concrete feeds.
//
// The executor walks the unfed ancestors of the requested fetches in
// topological order, calling each node's layer once. Every intermediate value
// is owned by a per-call working FeedDict and is released as soon as its last
// consumer has run. Values that are fetched, fed by the caller, or produced by
// a stateful layer are retained. Masks are released in bulk when the call
// returns, since a mask may be read by a node far downstream of its producer.
//
// Evaluation plans (order plus consumer counts) are memoized in an LRU
// PlanCache keyed by graph identity, fetch names and feed names.
//
// Example:
//
//	feed, _ := executor.NewFeedDict(executor.Feed{Key: x, Value: xValue})
//	exec := executor.New()
//	out, err := exec.ExecuteOne(ctx, y, feed)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Errors carry a Code (DUPLICATE_KEY, NONEXISTENT_KEY, EMPTY_FETCH_SET,
// CYCLE_DETECTED, MISSING_INPUT, LAYER_FAILED) that can be tested with Is.
package executor
