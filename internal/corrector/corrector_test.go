package corrector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typobench/internal/model"
)

type recording struct {
	Base
	calls []string
}

func (r *recording) AutoCorrect(_ context.Context, history string, _ []model.Keystroke, word string) ([]string, error) {
	r.calls = append(r.calls, "acr:"+history+word)
	return []string{word}, nil
}

func (r *recording) ResolveSwipe(context.Context, string, []model.Point) ([]string, error) {
	r.calls = append(r.calls, "swp")
	return nil, errors.New("boom")
}

func TestNoopPredictsNothing(t *testing.T) {
	ctx := context.Background()
	var c Corrector = Noop{}

	for _, task := range model.AllTasks {
		preds, err := Call(ctx, c, model.Target{Task: task, Input: "word"})
		require.NoError(t, err)
		assert.Empty(t, preds, task.String())
	}
}

func TestCallDispatchesByTask(t *testing.T) {
	ctx := context.Background()
	r := &recording{}

	preds, err := Call(ctx, r, model.Target{Task: model.TaskAutoCorrection, Context: "the ", Input: "cst"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cst"}, preds)

	preds, err = Call(ctx, r, model.Target{Task: model.TaskAutoCompletion, Input: "ca"})
	require.NoError(t, err)
	assert.Nil(t, preds)

	_, err = Call(ctx, r, model.Target{Task: model.TaskSwipeResolution})
	require.Error(t, err)

	assert.Equal(t, []string{"acr:the cst", "swp"}, r.calls)
}

func TestSpecString(t *testing.T) {
	tests := []struct {
		in   string
		want Spec
	}{
		{"noop", Spec{Name: "noop"}},
		{"dictionary:max=5,lang=en", Spec{Name: "dictionary", Params: map[string]string{"max": "5", "lang": "en"}}},
		{" dictionary: lang = en ", Spec{Name: "dictionary", Params: map[string]string{"lang": "en"}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSpec(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := ParseSpec(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}

	for _, bad := range []string{"", ":max=1", "dictionary:max"} {
		_, err := ParseSpec(bad)
		assert.ErrorIs(t, err, ErrInvalidParam, bad)
	}
}

func TestRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"dictionary", "noop"}, r.Names())

	_, err := r.Build(Spec{Name: "missing"})
	require.ErrorIs(t, err, ErrUnknownCorrector)

	require.Error(t, r.Register("noop", func(map[string]string) (Corrector, error) { return Noop{}, nil }))
	require.Error(t, r.Register("", nil))

	built := 0
	require.NoError(t, r.Register("counting", func(map[string]string) (Corrector, error) {
		built++
		return &recording{}, nil
	}))
	a, err := r.Build(Spec{Name: "counting"})
	require.NoError(t, err)
	b, err := r.Build(Spec{Name: "counting"})
	require.NoError(t, err)
	assert.Equal(t, 2, built)
	assert.NotSame(t, a, b)

	require.NoError(t, r.Register("nil", func(map[string]string) (Corrector, error) { return nil, nil }))
	_, err = r.Build(Spec{Name: "nil"})
	require.Error(t, err)
}
