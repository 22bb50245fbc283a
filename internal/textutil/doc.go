// Package textutil turns sentences into term vectors and normalizes text.
//
// The primary use cases are:
//   - Tokenizing sentences into lowercase word tokens
//   - Building a sentence-by-term matrix under one of the vectoring schemes
//   - Folding accents and lowercasing with Unicode-aware casing
//
// Tokens are runs of at least two letters, digits or underscores. The
// vocabulary is sorted lexicographically so column order is deterministic.
package textutil
