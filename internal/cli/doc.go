// Package cli builds the cobra command tree. It turns flags into an
// app.Config, runs the requested task, pipeline or listing, and maps usage
// and configuration failures onto ExitError with exit code 2.
package cli
