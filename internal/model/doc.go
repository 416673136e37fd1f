// Package model defines the core data structures used throughout the water bill bot.
//
// This package contains the following main types:
//   - Property: A tracked rental property identified by its utility account number
//   - WaterBill: One scraped snapshot of a property's utility balance
//   - BillStatus: The payment state derived from amount and due date
//   - Tenant: An occupant, used for Section 8 recertification reminders
//   - ScrapeLog: The outcome of one refresh run
//   - TelegramUser: A chat user known to the bot
//
// Money is kept as integer cents (Cents) so that sums and thresholds never
// suffer from floating point rounding.
//
// Models are shared by the database, portal, refresh, notify, report and bot
// packages; keeping them here prevents import cycles.
package model
