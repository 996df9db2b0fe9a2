package tier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"yapper-points/pkg/config"
	"yapper-points/pkg/errutil"
	"yapper-points/pkg/taskname"
	"yapper-points/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type enqueuerMock struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (m *enqueuerMock) Enqueue(_ context.Context, t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, t)
	return nil, m.err
}

func testLadder(t *testing.T) Ladder {
	l, err := NewLadder([]config.Tier{
		{Name: "silver", MinPoints: 0},
		{Name: "gold", MinPoints: 20000},
		{Name: "platinum", MinPoints: 50000},
	})
	require.NoError(t, err)
	return l
}

func newEngine(t *testing.T, enq *enqueuerMock) *Engine {
	db := testutil.NewTestDB(t, Models()...)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	p := EngineParams{DB: db, Node: node, Ladder: testLadder(t)}
	if enq != nil {
		p.Enqueuer = enq
	}
	return NewEngine(p)
}

func TestLadderThresholdEquality(t *testing.T) {
	l := testLadder(t)

	require.Equal(t, "SILVER", l.Evaluate(19999).Name)
	require.Equal(t, "GOLD", l.Evaluate(20000).Name)
	require.Equal(t, "GOLD", l.Evaluate(49999).Name)
	require.Equal(t, "PLATINUM", l.Evaluate(50000).Name)
	require.Equal(t, "SILVER", l.Evaluate(-5).Name)
}

func TestNewLadderValidation(t *testing.T) {
	_, err := NewLadder(nil)
	require.True(t, errutil.IsStatus(err, errutil.StatusValidationFailed))

	_, err = NewLadder([]config.Tier{{Name: "a", MinPoints: 0}, {Name: "b", MinPoints: 0}})
	require.True(t, errutil.IsStatus(err, errutil.StatusValidationFailed))

	_, err = NewLadder([]config.Tier{{Name: "a", MinPoints: 0}, {Name: "A", MinPoints: 10}})
	require.True(t, errutil.IsStatus(err, errutil.StatusValidationFailed))

	_, err = NewLadder(config.DefaultTiers)
	require.NoError(t, err)
}

func TestApplyWritesOnlyOnChange(t *testing.T) {
	enq := &enqueuerMock{}
	e := newEngine(t, enq)
	ctx := context.Background()
	at := time.Date(2025, 9, 3, 12, 0, 0, 0, time.UTC)

	tr, err := e.Apply(ctx, Change{WalletAddress: "0xa", TotalPoints: 500, RunID: "r1", At: at}, false)
	require.NoError(t, err)
	require.False(t, tr.Changed)
	require.Equal(t, "SILVER", tr.To)

	tr, err = e.Apply(ctx, Change{WalletAddress: "0xa", TotalPoints: 20000, ReferralCount: 4, RunID: "r2", At: at.Add(time.Hour)}, false)
	require.NoError(t, err)
	require.Equal(t, Transition{From: "SILVER", To: "GOLD", Changed: true}, tr)

	tr, err = e.Apply(ctx, Change{WalletAddress: "0xa", TotalPoints: 21000, RunID: "r3", At: at.Add(2 * time.Hour)}, false)
	require.NoError(t, err)
	require.False(t, tr.Changed)

	e.Wait()

	n, err := e.records.Count(ctx, &Record{WalletAddress: "0xa"})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	current, err := e.Current(ctx, "0xa")
	require.NoError(t, err)
	require.Equal(t, "GOLD", current)

	require.Len(t, enq.tasks, 1)
	require.Equal(t, taskname.TierChanged, enq.tasks[0].Type())

	var payload ChangedPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	require.Equal(t, ChangedPayload{
		WalletAddress: "0xa", OldTier: "SILVER", NewTier: "GOLD", TotalPoints: 20000, RunID: "r2",
	}, payload)
}

func TestApplyDryRunAndDowngrade(t *testing.T) {
	e := newEngine(t, &enqueuerMock{err: errors.New("redis down")})
	ctx := context.Background()
	at := time.Date(2025, 9, 3, 12, 0, 0, 0, time.UTC)

	tr, err := e.Apply(ctx, Change{WalletAddress: "0xa", TotalPoints: 60000, At: at}, true)
	require.NoError(t, err)
	require.Equal(t, "PLATINUM", tr.To)
	require.True(t, tr.Changed)

	n, err := e.records.Count(ctx, &Record{})
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = e.Apply(ctx, Change{WalletAddress: "0xa", TotalPoints: 60000, At: at}, false)
	require.NoError(t, err)

	tr, err = e.Apply(ctx, Change{WalletAddress: "0xa", TotalPoints: 100, At: at.Add(time.Hour)}, false)
	require.NoError(t, err)
	require.Equal(t, Transition{From: "PLATINUM", To: "SILVER", Changed: true}, tr)

	e.Wait()
}

func TestEngineWithoutEnqueuer(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.Apply(context.Background(), Change{WalletAddress: "0xb", TotalPoints: 50000}, false)
	require.NoError(t, err)
	e.Wait()
}
