// Package deps checks that the external binaries the pipeline shells out to
// are installed.
package deps
