// Package report renders the bill summary dashboard for the report command.
//
// Writers:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: Markdown with a status pie chart, for sharing
//   - JSONWriter: structured output for other tools
//
// All writers implement Writer and can be combined with MultiWriter.
package report
