package evaluator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/interviewer/internal/model"
)

// Item is one (question, answer) pair of a batch.
type Item struct {
	Question model.Question `json:"question"`
	Answer   string         `json:"answer"`
}

// EvaluateBatch scores items independently, at most e.workers at a time.
// Results keep the order of items and carry their question ID.
func (e *Evaluator) EvaluateBatch(ctx context.Context, items []Item) []model.Evaluation {
	results := make([]model.Evaluation, len(items))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, it := range items {
		g.Go(func() error {
			ev := e.Evaluate(ctx, it.Question, it.Answer)
			ev.QuestionID = it.Question.ID
			results[i] = ev
			return nil
		})
	}
	_ = g.Wait()

	return results
}
