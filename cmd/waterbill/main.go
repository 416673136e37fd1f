// Package main provides the entry point for the waterbill CLI.
//
// waterbill tracks water bills from the BS&A Online utility portal and
// reports them through a Telegram bot.
//
// Usage:
//
//	waterbill setup
//	waterbill bot
//	waterbill report --format markdown
//
// See --help for all available options.
package main

func main() {
	Execute()
}
