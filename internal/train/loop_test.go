package train

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoopStopsOnGoal(t *testing.T) {
	l := &Loop{Epochs: 10, Goal: 0.5}

	assert.NoError(t, l.Epoch(3, nil, nil, nil))
	err := l.Epoch(0.5, nil, nil, nil)
	assert.ErrorIs(t, err, ErrGoalReached)
	assert.ErrorIs(t, err, ErrStop)
	assert.Equal(t, []float64{3, 0.5}, l.History())
}

func TestLoopStopsPastBudget(t *testing.T) {
	l := &Loop{Epochs: 2, Goal: -1}

	require.NoError(t, l.Epoch(5, nil, nil, nil))
	require.NoError(t, l.Epoch(4, nil, nil, nil))
	err := l.Epoch(3, nil, nil, nil)
	assert.ErrorIs(t, err, ErrMaxEpochs)
	assert.ErrorIs(t, err, ErrStop)
	assert.Equal(t, 3, l.EpochCount())
}

func TestLoopReportsEveryShowEpochs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var seen []int
	l := &Loop{
		Show:    2,
		Goal:    -1,
		Logger:  zap.New(core),
		OnEpoch: func(epoch int, _ float64) { seen = append(seen, epoch) },
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Epoch(float64(10-i), nil, nil, nil))
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, seen)
	entries := logs.FilterMessage("epoch").All()
	require.Len(t, entries, 2)
	assert.EqualValues(t, 2, entries[0].ContextMap()["epoch"])
	assert.EqualValues(t, 4, entries[1].ContextMap()["epoch"])
}

func TestTrainReachesGoal(t *testing.T) {
	net := newVecNet(0)
	res, err := Train(context.Background(), AlgorithmBFGS, net, oneSample, &quadratic{},
		WithConfig(Config{KeyGoal: 0.01}))
	require.NoError(t, err)

	assert.Equal(t, AlgorithmBFGS, res.Algorithm)
	assert.Equal(t, ReasonGoal, res.Reason)
	assert.Positive(t, res.Epochs)
	assert.Len(t, res.History, res.Epochs)
	assert.LessOrEqual(t, res.History[len(res.History)-1], 0.01)
}

func TestTrainFinishesWithinBudget(t *testing.T) {
	net := newVecNet(0, 0)
	res, err := Train(context.Background(), AlgorithmGenetic, net, oneSample, &quadratic{},
		WithEpochs(5), WithConfig(Config{KeyGoal: -1}))
	require.NoError(t, err)

	assert.Equal(t, ReasonFinished, res.Reason)
	assert.Equal(t, 5, res.Epochs)
	assert.Equal(t, bowl(net.Parameters()), res.Error)
}

func TestTrainStopsUnremappedRoutinePastBudget(t *testing.T) {
	net := newVecNet(0, 0, 0)
	res, err := Train(context.Background(), AlgorithmCG, net, oneSample, &quadratic{},
		WithEpochs(1), WithConfig(Config{KeyGoal: -1}))
	require.NoError(t, err)

	if res.Reason == ReasonMaxEpochs {
		assert.Equal(t, 2, res.Epochs)
	} else {
		assert.Equal(t, ReasonFinished, res.Reason)
		assert.LessOrEqual(t, res.Epochs, 1)
	}
}

func TestTrainPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Train(context.Background(), AlgorithmBFGS, newVecNet(0), oneSample, &quadratic{fail: boom})
	assert.ErrorIs(t, err, boom)

	_, err = Train(context.Background(), "adam", newVecNet(0), oneSample, &quadratic{})
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestTrainEpochObserver(t *testing.T) {
	var epochs []int
	_, err := Train(context.Background(), AlgorithmHillClimb, newVecNet(0), oneSample, &quadratic{},
		WithEpochs(10),
		WithConfig(Config{KeyGoal: -1}),
		WithEpochObserver(func(epoch int, _ float64) { epochs = append(epochs, epoch) }),
	)
	require.NoError(t, err)
	require.NotEmpty(t, epochs)
	assert.Equal(t, 1, epochs[0])
}
