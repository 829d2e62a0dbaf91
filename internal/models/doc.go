// Package models defines the domain entities for the chorus link bot.
//
// The package contains three categories of types:
//
// 1. Streaming-service values: the fixed [Service] enum and its host allow-list
//
// 2. Resolution objects: [Candidate] (a recognized inbound link) and
// [Equivalence] (the cross-service link set produced by the lookup or the
// fallback path)
//
// 3. Transport objects: [MessageEvent] and [Attachment], the slice of the
// Slack event payload the engine consumes, and [Resolution], the persisted
// history row for a handled event.
package models
