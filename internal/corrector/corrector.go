// Package corrector defines the capability contract under test and the
// registry used to rebuild a corrector inside every worker.
package corrector

import (
	"context"

	"github.com/verte-zerg/typobench/internal/model"
)

// Corrector is the component under test. Every method returns ranked
// candidates; an empty list means no prediction and always scores as a
// miss. history is the text typed before the current word, each word
// followed by a space.
type Corrector interface {
	AutoCorrect(ctx context.Context, history string, keystrokes []model.Keystroke, word string) ([]string, error)
	AutoComplete(ctx context.Context, history string, keystrokes []model.Keystroke, partial string) ([]string, error)
	PredictNextWord(ctx context.Context, history string) ([]string, error)
	ResolveSwipe(ctx context.Context, history string, gesture []model.Point) ([]string, error)
}

// Base implements every method with no prediction. Embed it to implement
// only some of the tasks.
type Base struct{}

// AutoCorrect returns no prediction.
func (Base) AutoCorrect(context.Context, string, []model.Keystroke, string) ([]string, error) {
	return nil, nil
}

// AutoComplete returns no prediction.
func (Base) AutoComplete(context.Context, string, []model.Keystroke, string) ([]string, error) {
	return nil, nil
}

// PredictNextWord returns no prediction.
func (Base) PredictNextWord(context.Context, string) ([]string, error) {
	return nil, nil
}

// ResolveSwipe returns no prediction.
func (Base) ResolveSwipe(context.Context, string, []model.Point) ([]string, error) {
	return nil, nil
}

// Noop predicts nothing for every task.
type Noop struct {
	Base
}

// Call runs the method of c matching the task of target.
func Call(ctx context.Context, c Corrector, target model.Target) ([]string, error) {
	switch target.Task {
	case model.TaskAutoCorrection:
		return c.AutoCorrect(ctx, target.Context, target.Keystrokes, target.Input)
	case model.TaskAutoCompletion:
		return c.AutoComplete(ctx, target.Context, target.Keystrokes, target.Input)
	case model.TaskNextWordPrediction:
		return c.PredictNextWord(ctx, target.Context)
	case model.TaskSwipeResolution:
		return c.ResolveSwipe(ctx, target.Context, target.Gesture)
	}
	return nil, nil
}
