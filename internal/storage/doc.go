// Package storage is the delivery boundary for finished outputs. Small
// results go back through the chat transport directly; oversized ones are
// uploaded to secondary storage and the user gets a link instead.
package storage
