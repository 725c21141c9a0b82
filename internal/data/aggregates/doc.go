// Package aggregates implements the request lifecycle over the table repos.
// Writes go through executeWrite, which owns the transaction, maps driver
// errors onto aggregate codes and reports each outcome to Hooks once.
package aggregates
