// Package subtitles builds an extractive summary of a video's subtitles.
//
// Cues read from an SRT file are joined into sentences, cleaned (lowercase,
// stopwords, punctuation, accents), turned into a sentence-by-term matrix and
// ranked with a singular value decomposition. Each selected sentence gets a
// score, highest first; the resume composer keeps the top share of them.
package subtitles
