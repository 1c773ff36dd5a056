package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/ingest"
	"github.com/mtlprog/taskindexer/internal/projection"
	"github.com/mtlprog/taskindexer/internal/router"
	"github.com/mtlprog/taskindexer/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	biddingContract = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	disputeContract = "0xdddddddddddddddddddddddddddddddddddddddd"
	creator         = "0x1111111111111111111111111111111111111111"
	worker          = "0x2222222222222222222222222222222222222222"
)

func registry(t *testing.T) *ingest.ContractRegistry {
	t.Helper()
	reg, err := ingest.NewContractRegistry(map[domain.Source]string{
		domain.SourceBidding: strings.ToUpper("0x") + biddingContract[2:],
		domain.SourceDispute: disputeContract,
		domain.SourceUser:    "",
	})
	require.NoError(t, err)
	return reg
}

// recorder counts dispatches per stream before delegating.
type recorder struct {
	next ingest.Dispatcher
	mu   sync.Mutex
	seen map[domain.Source][]domain.Position
}

func newRecorder(next ingest.Dispatcher) *recorder {
	return &recorder{next: next, seen: make(map[domain.Source][]domain.Position)}
}

func (r *recorder) Dispatch(ctx context.Context, evt domain.Event) error {
	r.mu.Lock()
	r.seen[evt.Source] = append(r.seen[evt.Source], evt.Position())
	r.mu.Unlock()
	return r.next.Dispatch(ctx, evt)
}

func (r *recorder) count(src domain.Source) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen[src])
}

func newPipeline(st *store.MemoryStore) (*recorder, *ingest.Runner) {
	rt := router.New(nil)
	projection.NewProjector(st).Register(rt)
	rec := newRecorder(rt)
	return rec, ingest.NewRunner(st, rec, nil)
}

const feed = `
{"contract":"0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA","event":"TaskCreated","blockNumber":10,"logIndex":0,"blockTimestamp":1700000000,"params":{"taskId":"1","creator":"0x1111111111111111111111111111111111111111","title":"logo"}}
{"source":"dispute","contract":"0xdddddddddddddddddddddddddddddddddddddddd","event":"AdminStaked","blockNumber":10,"logIndex":1,"blockTimestamp":1700000000,"params":{"admin":"0x3333333333333333333333333333333333333333","amount":"1000"}}
not json at all
{"source":"bidding","event":"BidSubmitted","blockNumber":11,"logIndex":0,"blockTimestamp":1700000012,"params":{"taskId":"1","bidder":"0x2222222222222222222222222222222222222222","amount":"100"}}
{"source":"bidding","event":"BidSubmitted","blockNumber":11,"logIndex":3,"blockTimestamp":1700000012,"params":{"taskId":"1","bidder":"0x2222222222222222222222222222222222222222","amount":"150"}}

{"source":"bidding","event":"WorkerAdded","blockNumber":12,"logIndex":0,"blockTimestamp":1700000024,"params":{"taskId":"1","worker":"0x2222222222222222222222222222222222222222","amount":"150"}}
{"source":"user","event":"UserSkillsUpdated","blockNumber":12,"logIndex":1,"blockTimestamp":1700000024,"params":{"user":"0x2222222222222222222222222222222222222222","skills":["go"]}}
`

func TestContractRegistry_Resolve(t *testing.T) {
	reg := registry(t)

	evt := domain.Event{ContractAddress: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}
	require.NoError(t, reg.Resolve(&evt))
	assert.Equal(t, domain.SourceBidding, evt.Source)
	assert.Equal(t, biddingContract, evt.ContractAddress)

	addr, ok := reg.Address(domain.SourceDispute)
	assert.True(t, ok)
	assert.Equal(t, disputeContract, addr)
	_, ok = reg.Address(domain.SourceUser)
	assert.False(t, ok)

	mismatch := domain.Event{Source: domain.SourceMilestone, ContractAddress: disputeContract}
	assert.ErrorIs(t, reg.Resolve(&mismatch), domain.ErrInvalidEvent)

	unknown := domain.Event{ContractAddress: worker}
	assert.ErrorIs(t, reg.Resolve(&unknown), domain.ErrInvalidEvent)

	badTag := domain.Event{Source: "erc20"}
	assert.ErrorIs(t, reg.Resolve(&badTag), domain.ErrInvalidEvent)
}

func TestNewContractRegistry_RejectsSharedAddress(t *testing.T) {
	_, err := ingest.NewContractRegistry(map[domain.Source]string{
		domain.SourceBidding:      biddingContract,
		domain.SourceFixedPayment: biddingContract,
	})
	assert.Error(t, err)

	_, err = ingest.NewContractRegistry(map[domain.Source]string{domain.SourceBidding: "0x12"})
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestJSONLSource_DecodeEvent(t *testing.T) {
	src := ingest.NewJSONLSource(nil, registry(t))

	_, err := src.DecodeEvent([]byte(`{"source":"bidding","blockNumber":1,"blockTimestamp":1,"params":{}}`))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent, "missing event name")

	_, err = src.DecodeEvent([]byte(`{"source":"bidding","event":"TaskCreated","blockNumber":1,"params":{}}`))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent, "missing timestamp")

	evt, err := src.DecodeEvent([]byte(`{"source":"user","event":"UserSkillsUpdated","blockNumber":5,"logIndex":2,"blockTimestamp":9}`))
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Block: 5, LogIndex: 2}, evt.Position())
	assert.JSONEq(t, `{}`, string(evt.Params))
}

func TestRunSource_ProjectsFeedPerStream(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	rec, runner := newPipeline(st)

	require.NoError(t, runner.RunSource(ctx, ingest.NewJSONLSource(strings.NewReader(feed), registry(t))))

	task, err := st.GetTask(ctx, domain.TaskKindBidding, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, task.Status)
	assert.Equal(t, worker, task.Worker)
	assert.Equal(t, "150", task.Reward.String())
	assert.Len(t, task.BidIDs, 1)

	admin, err := st.GetAdmin(ctx, "0x3333333333333333333333333333333333333333")
	require.NoError(t, err)
	assert.True(t, admin.IsActive)

	user, err := st.GetUser(ctx, worker)
	require.NoError(t, err)
	require.NotNil(t, user.Skills)
	assert.Equal(t, []string{"go"}, user.Skills.Skills)

	cp, err := st.GetCheckpoint(ctx, domain.SourceBidding)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Block: 12, LogIndex: 0}, cp.Position)

	assert.Equal(t, 4, rec.count(domain.SourceBidding))
	for src, seen := range rec.seen {
		for i := 1; i < len(seen); i++ {
			assert.True(t, seen[i-1].Less(seen[i]), "stream %s out of order", src)
		}
	}

	events, err := st.ListEvents(ctx, domain.SourceBidding, domain.Position{}, 100)
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestRunSource_RedeliveryIsSkippedByCheckpoint(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	rec, runner := newPipeline(st)

	require.NoError(t, runner.RunSource(ctx, ingest.NewJSONLSource(strings.NewReader(feed), registry(t))))
	before, err := st.GetTask(ctx, domain.TaskKindBidding, "1")
	require.NoError(t, err)

	// a restarted feed delivers everything again
	require.NoError(t, runner.RunSource(ctx, ingest.NewJSONLSource(strings.NewReader(feed), registry(t))))

	after, err := st.GetTask(ctx, domain.TaskKindBidding, "1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 4, rec.count(domain.SourceBidding), "checkpointed events must not be dispatched again")
}

type failingDispatcher struct{}

var errStore = errors.New("connection reset")

func (failingDispatcher) Dispatch(_ context.Context, evt domain.Event) error {
	if evt.Source == domain.SourceBidding {
		return fmt.Errorf("apply: %w", errStore)
	}
	return nil
}

func TestRun_StoreErrorStopsIngest(t *testing.T) {
	st := store.NewMemoryStore()
	runner := ingest.NewRunner(st, failingDispatcher{}, nil)

	err := runner.RunSource(context.Background(), ingest.NewJSONLSource(strings.NewReader(feed), registry(t)))
	require.ErrorIs(t, err, errStore)

	_, err = st.GetCheckpoint(context.Background(), domain.SourceBidding)
	assert.ErrorIs(t, err, store.ErrNotFound, "a failed event must not be checkpointed")
}

func TestReplay_RebuildsProjectionFromLog(t *testing.T) {
	ctx := context.Background()
	original := store.NewMemoryStore()
	_, runner := newPipeline(original)
	require.NoError(t, runner.RunSource(ctx, ingest.NewJSONLSource(strings.NewReader(feed), registry(t))))

	rebuilt := store.NewMemoryStore()
	rt := router.New(nil)
	projection.NewProjector(rebuilt).Register(rt)
	replayer := ingest.NewRunner(original, rt, nil)

	n, err := replayer.ReplayAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	want, err := original.GetTask(ctx, domain.TaskKindBidding, "1")
	require.NoError(t, err)
	got, err := rebuilt.GetTask(ctx, domain.TaskKindBidding, "1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// replaying a second time from an earlier position converges
	n, err = replayer.Replay(ctx, domain.SourceBidding, domain.Position{Block: 11})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, err = rebuilt.GetTask(ctx, domain.TaskKindBidding, "1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
