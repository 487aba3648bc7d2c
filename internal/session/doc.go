// Package session tracks per-user conversational state: the attached file,
// the operation being assembled, accumulated options, and the running job
// handle. State is held in memory; it does not survive a restart, the queue
// does.
package session
