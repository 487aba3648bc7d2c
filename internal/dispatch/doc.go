// Package dispatch drives one job from frozen request to delivered output:
// probe, build, run, deliver, then pull the user's next queued job. It owns
// output path derivation, the merge re-encode fallback, and the dividing
// line between direct and secondary-storage delivery.
package dispatch
