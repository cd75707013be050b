// Package testutil contains canned activity functions used across tests to
// reduce boilerplate when exercising the scheduler and engine. These helpers
// are intentionally minimal and not intended for production usage.
package testutil
