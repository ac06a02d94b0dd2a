// Package query narrows, orders and pages in-memory record collections for
// display. Every function is pure: inputs are never mutated and results are
// new slices that keep the input order.
package query
