// Package market aggregates regional market statistics for a location and
// derives a potential-customer estimate from them.
//
// Each statistics category is resolved through an ordered fallback chain of
// sources: live APIs first, then the injected Dataset, then a sentinel result
// whose numeric fields are all absent. Source failures never escape a chain.
package market
