package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/spamdash/lib/gateway/mocks"
	"github.com/umputun/spamdash/lib/msgcheck"
	"github.com/umputun/spamdash/lib/spamclf"
	"github.com/umputun/spamdash/lib/textproc"
)

func TestLocal_Infer(t *testing.T) {
	m, err := spamclf.LoadModelFiles("../spamclf/testdata/vocabulary.json", "../spamclf/testdata/model.json")
	require.NoError(t, err)
	gw := NewLocal(spamclf.NewPipeline(textproc.NewNormalizer(), m))
	assert.Equal(t, "local", gw.Name())

	res, err := gw.Infer(context.Background(), "WIN A FREE PRIZE NOW!!!")
	require.NoError(t, err)
	assert.Equal(t, msgcheck.LabelSpam, res.Label)
	assert.Greater(t, res.Probabilities.Spam, res.Probabilities.Ham)
	assert.NoError(t, res.Probabilities.Validate())

	res, err = gw.Infer(context.Background(), "see you at the meeting tomorrow, lunch after?")
	require.NoError(t, err)
	assert.Equal(t, msgcheck.LabelHam, res.Label)
}

func TestLocal_Validation(t *testing.T) {
	pm := &mocks.PredictorMock{PredictFunc: func(msg string) (msgcheck.Result, error) {
		return msgcheck.NewResult(0.9), nil
	}}
	gw := NewLocal(pm)

	for _, msg := range []string{"", "   ", "\t\n"} {
		_, err := gw.Infer(context.Background(), msg)
		assert.ErrorIs(t, err, msgcheck.ErrValidation, "message %q", msg)
	}
	assert.Empty(t, pm.PredictCalls(), "predictor not called for empty messages")

	res, err := gw.Infer(context.Background(), "buy now")
	require.NoError(t, err)
	assert.True(t, res.IsSpam())
	require.Len(t, pm.PredictCalls(), 1)
	assert.Equal(t, "buy now", pm.PredictCalls()[0].Msg)
}

func TestLocal_Errors(t *testing.T) {
	t.Run("no model", func(t *testing.T) {
		_, err := NewLocal(nil).Infer(context.Background(), "hello")
		assert.ErrorIs(t, err, msgcheck.ErrModelUnavailable)

		_, err = NewLocal(spamclf.NewPipeline(textproc.NewNormalizer(), nil)).Infer(context.Background(), "hello")
		assert.ErrorIs(t, err, msgcheck.ErrModelUnavailable)
	})

	t.Run("canceled", func(t *testing.T) {
		pm := &mocks.PredictorMock{PredictFunc: func(msg string) (msgcheck.Result, error) {
			return msgcheck.NewResult(0.1), nil
		}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewLocal(pm).Infer(ctx, "hello")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, pm.PredictCalls())
	})
}
