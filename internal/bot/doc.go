// Package bot implements the Telegram front end: long polling, the command
// menu, command handlers, the /add conversation and the /remove inline
// keyboard.
//
// The bot runs without a database. Commands that need one answer that the
// database is not connected.
package bot
