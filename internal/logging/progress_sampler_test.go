package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog("job", 0) {
		t.Fatal("first record should log")
	}
	if s.ShouldLog("job", 3) {
		t.Fatal("same bucket should be suppressed")
	}
	if !s.ShouldLog("job", 12) {
		t.Fatal("new bucket should log")
	}
	if s.ShouldLog("job", 11) {
		t.Fatal("regression within bucket should be suppressed")
	}
}

func TestProgressSamplerCompletionAlwaysLogs(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog("job", 100) {
		t.Fatal("completion should always log")
	}
	// Completion resets state so a reused key starts over.
	if !s.ShouldLog("job", 1) {
		t.Fatal("expected fresh state after completion")
	}
}

func TestProgressSamplerKeysIndependent(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog("a", 50) {
		t.Fatal("first record for a should log")
	}
	if !s.ShouldLog("b", 50) {
		t.Fatal("first record for b should log")
	}
}
