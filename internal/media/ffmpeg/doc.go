// Package ffmpeg runs ffmpeg-family binaries and parses their stats output.
//
// CommandRunner streams stdout and stderr line by line to a callback, which
// is how scene detection reads showinfo output and how rendering reports
// progress. ParseProgressTime and Percent turn "time=" stats into progress
// percentages.
package ffmpeg
