package health

import "context"

// CorpusCounter reports how many documents the retriever can search.
type CorpusCounter interface {
	Len() int
}

// AnswerChecker checks answer provider availability.
type AnswerChecker interface {
	HealthCheck(ctx context.Context) error
}
