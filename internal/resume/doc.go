// Package resume composes the final cut list from scenes, object occurrences
// and scored subtitle sentences.
//
// Candidates are collected per mode, optionally widened to the enclosing
// scenes, sorted by start and merged so the result is disjoint with gaps of
// more than one millisecond.
package resume
