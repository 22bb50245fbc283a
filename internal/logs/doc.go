// Package logs reads back the vidresume log file for `vidresume logs` and the
// HTTP `/logs` route.
//
// Tail returns the last N lines (negative offset) or everything after a byte
// offset, optionally filtered to one pipeline stage. Follow mode blocks on
// file-system notifications until new lines arrive or the wait elapses.
package logs
