// Package services holds cross-cutting helpers shared by the job pipeline:
// sentinel errors with stage-aware wrapping, and context annotations that tie
// log lines and failures back to the user and job that produced them.
package services
