// Package aggregates holds the transactional writers that commit fetched
// batches. Each writer resolves natural keys against the store, drops what
// already exists, and inserts the rest together with any parent rows inside
// one transaction.
package aggregates
