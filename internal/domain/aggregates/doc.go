// Package aggregates declares the request lifecycle write boundary and the
// error codes every layer above it classifies failures by.
package aggregates
