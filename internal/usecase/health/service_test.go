package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockCorpus struct {
	n int
}

func (m *mockCorpus) Len() int { return m.n }

type mockAnswerChecker struct {
	err error
}

func (m *mockAnswerChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		corpus     int
		answer     AnswerChecker
		wantStatus Status
		wantCorpus CheckResult
		wantAnswer CheckResult // "" = absent
	}{
		{"all healthy", 3, &mockAnswerChecker{}, Healthy, CheckOK, CheckOK},
		{"answer down", 3, &mockAnswerChecker{err: errors.New("timeout")}, Degraded, CheckOK, CheckError},
		{"empty corpus", 0, &mockAnswerChecker{}, Unhealthy, CheckError, CheckOK},
		{"both fail", 0, &mockAnswerChecker{err: errors.New("down")}, Unhealthy, CheckError, CheckError},
		{"no answer provider", 3, nil, Healthy, CheckOK, ""},
		{"no answer provider, empty corpus", 0, nil, Unhealthy, CheckError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&mockCorpus{n: tt.corpus}, tt.answer).Check(context.Background())

			if r.Status != tt.wantStatus {
				t.Errorf("expected %q, got %q", tt.wantStatus, r.Status)
			}
			if r.Checks["corpus"] != tt.wantCorpus {
				t.Errorf("expected corpus %q, got %q", tt.wantCorpus, r.Checks["corpus"])
			}
			got, ok := r.Checks["answer"]
			if tt.wantAnswer == "" {
				if ok {
					t.Error("answer check should be absent when no provider is configured")
				}
				return
			}
			if got != tt.wantAnswer {
				t.Errorf("expected answer %q, got %q", tt.wantAnswer, got)
			}
		})
	}
}
