// Package present renders gateway outcomes as the text returned by tools and
// printed by the CLI.
//
// Failures render as "Error (<kind>): <reason>". Empty message sets render an
// explicit sentence instead of an empty string. HTML bodies are converted to
// Markdown for the preview only.
package present
