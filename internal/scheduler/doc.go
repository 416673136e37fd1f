// Package scheduler runs the bot's periodic jobs (bill scraping and the
// daily notifications) on cron schedules.
package scheduler
