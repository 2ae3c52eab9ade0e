// Package loader provides the single-flight race-context loader.
//
// At most one fetch is in flight per race ID; concurrent callers join the
// same outcome, and the in-flight entry is removed on completion so a
// later call starts fresh. Successful contexts are held in an LRU cache
// with a freshness window. Failure messages are kept per race ID for
// display until the next successful load.
package loader
