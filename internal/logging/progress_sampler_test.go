package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "a.mp4") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(5)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{3, false},
		{4.9, false},
		{5, true},
		{7, false},
		{12, true},
		{10, false},
		{100, true},
		{120, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent, "a.mp4"); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerSubjectChangeResetsBuckets(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "a.mp4")
	if !s.ShouldLog(50, " b.mp4 ") {
		t.Fatal("expected subject change to emit")
	}
	if s.lastSubject != "b.mp4" {
		t.Fatalf("lastSubject = %q, want trimmed b.mp4", s.lastSubject)
	}
	if s.ShouldLog(52, "b.mp4") {
		t.Fatal("expected same bucket to be suppressed")
	}
}

func TestProgressSamplerUnknownPercent(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(-1, "a.mp4") {
		t.Fatal("first subject should emit")
	}
	if s.ShouldLog(-1, "a.mp4") {
		t.Fatal("unknown percent on same subject should not emit")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(80, "a.mp4")
	s.Reset()
	if !s.ShouldLog(10, "a.mp4") {
		t.Fatal("expected emit after reset")
	}
}
