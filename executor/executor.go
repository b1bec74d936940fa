// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package executor evaluates symbolic graphs against fed values.
//
// Example:
//
//	feed, _ := executor.NewFeedDict(executor.Feed{Key: x, Value: xValue})
//	y, err := executor.New().ExecuteOne(ctx, out, feed)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer y.Release()
//
// Intermediates are released as soon as their last consumer has run unless
// they are fed, fetched, produced by a stateful layer, or the call runs in
// training mode.
package executor

import (
	"github.com/born-ml/dataflow/internal/executor"
	"github.com/born-ml/dataflow/internal/graph"
)

// Executor runs graphs, caching evaluation plans between calls.
type Executor = executor.Executor

// Option configures an Executor.
type Option = executor.Option

// ExecuteOption configures one Execute call.
type ExecuteOption = executor.ExecuteOption

// ExecutionStats records the range of live tensor counts during a call.
type ExecutionStats = executor.ExecutionStats

// FeedDict binds concrete values (and optional masks) to symbolic tensors.
type FeedDict = executor.FeedDict

// Feed is one FeedDict entry.
type Feed = executor.Feed

// Ref addresses a FeedDict entry by tensor or by name.
type Ref = executor.Ref

// PlanCache is an LRU cache of evaluation plans.
type PlanCache = executor.PlanCache

// Plan is a cached evaluation order with its recipient counts.
type Plan = executor.Plan

// CacheStats reports PlanCache usage.
type CacheStats = executor.CacheStats

// RecipientCounts maps a tensor name to its number of consumers.
type RecipientCounts = executor.RecipientCounts

// Error is a structured executor error.
type Error = executor.Error

// Code is a machine-readable error code.
type Code = executor.Code

// Error codes.
const (
	ErrCodeDuplicateKey   = executor.ErrCodeDuplicateKey
	ErrCodeNonexistentKey = executor.ErrCodeNonexistentKey
	ErrCodeEmptyFetchSet  = executor.ErrCodeEmptyFetchSet
	ErrCodeCycleDetected  = executor.ErrCodeCycleDetected
	ErrCodeMissingInput   = executor.ErrCodeMissingInput
	ErrCodeLayerFailed    = executor.ErrCodeLayerFailed
)

// DefaultCacheMaxEntries is the initial capacity of the shared plan cache.
const DefaultCacheMaxEntries = executor.DefaultCacheMaxEntries

// New creates an Executor. Without options it shares the default plan cache
// and logs through log.Default().
func New(opts ...Option) *Executor {
	return executor.New(opts...)
}

// WithPlanCache makes the Executor use c instead of the shared cache.
var WithPlanCache = executor.WithPlanCache

// WithLogger sets the Executor's logger.
var WithLogger = executor.WithLogger

// WithArgs passes args to every layer applied during the call.
var WithArgs = executor.WithArgs

// WithStats samples live tensor counts into p before each layer call.
var WithStats = executor.WithStats

// NewFeedDict creates a FeedDict from feeds.
func NewFeedDict(feeds ...Feed) (*FeedDict, error) {
	return executor.NewFeedDict(feeds...)
}

// ByTensor addresses a FeedDict entry by tensor.
func ByTensor(t *graph.SymbolicTensor) Ref {
	return executor.ByTensor(t)
}

// ByName addresses a FeedDict entry by tensor name.
func ByName(name string) Ref {
	return executor.ByName(name)
}

// NewPlanCache creates a plan cache holding at most maxEntries plans.
func NewPlanCache(maxEntries int) (*PlanCache, error) {
	return executor.NewPlanCache(maxEntries)
}

// DefaultPlanCache returns the cache shared by executors created without
// WithPlanCache.
func DefaultPlanCache() *PlanCache {
	return executor.DefaultPlanCache()
}

// UpdateCacheMaxEntries resizes the shared plan cache.
func UpdateCacheMaxEntries(n int) error {
	return executor.UpdateCacheMaxEntries(n)
}

// TopologicalSort returns the evaluation order for fetches given feed, along
// with each tensor's consumer count.
func TopologicalSort(fetches []*graph.SymbolicTensor, feed *FeedDict) ([]*graph.SymbolicTensor, RecipientCounts, error) {
	return executor.TopologicalSort(fetches, feed)
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return executor.Is(err, code)
}

// GetCode extracts the error code from err.
func GetCode(err error) Code {
	return executor.GetCode(err)
}
