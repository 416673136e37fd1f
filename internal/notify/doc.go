// Package notify builds the Telegram messages for bills and
// recertifications and delivers scheduled alerts to the admins.
//
// Message builders are pure functions of the stored data and "today", so
// the bot commands, the scheduled jobs and the tests share them. The
// Notifier resolves recipients and sends through a Sender.
package notify
