package app

import (
	"context"

	"skill-quiz-service/internal/domain"
)

// QuizLoader fetches a quiz and its questions from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.QuizView, error)
}

// QuizViewRepository serves quiz views (from a cache or straight from a loader).
// Catalog writes call Invalidate for every quiz they touch.
type QuizViewRepository interface {
	GetQuizView(ctx context.Context, quizID int64) (domain.QuizView, error)
	Invalidate(ctx context.Context, quizIDs ...int64)
}

// StoreQuizLoader loads quiz views through a Store.
type StoreQuizLoader struct {
	store Store
}

func NewStoreQuizLoader(store Store) *StoreQuizLoader {
	return &StoreQuizLoader{store: store}
}

func (l *StoreQuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.QuizView, error) {
	quiz, err := l.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizView{}, err
	}
	questions, err := l.store.QuestionsByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizView{}, err
	}
	return domain.QuizView{Quiz: quiz, Questions: questions}, nil
}
