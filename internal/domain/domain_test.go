package domain_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatusTransitions(t *testing.T) {
	allowed := map[domain.TaskStatus][]domain.TaskStatus{
		domain.TaskStatusOpen:       {domain.TaskStatusInProgress, domain.TaskStatusCancelled},
		domain.TaskStatusInProgress: {domain.TaskStatusCompleted, domain.TaskStatusPaid, domain.TaskStatusCancelled},
		domain.TaskStatusCompleted:  {domain.TaskStatusPaid},
		domain.TaskStatusPaid:       nil,
		domain.TaskStatusCancelled:  nil,
	}
	all := []domain.TaskStatus{
		domain.TaskStatusOpen, domain.TaskStatusInProgress, domain.TaskStatusCompleted,
		domain.TaskStatusPaid, domain.TaskStatusCancelled,
	}

	for from, to := range allowed {
		for _, next := range all {
			want := false
			for _, a := range to {
				if a == next {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(next), "%s -> %s", from, next)
		}
	}

	assert.True(t, domain.TaskStatusPaid.IsTerminal())
	assert.True(t, domain.TaskStatusCancelled.IsTerminal())
	assert.False(t, domain.TaskStatusCompleted.IsTerminal())
	assert.False(t, domain.TaskStatus("Done").IsValid())
}

func TestParseTaskKind(t *testing.T) {
	k, err := domain.ParseTaskKind("milestone")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskKindMilestone, k)

	_, err = domain.ParseTaskKind("Milestone")
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
}

func TestSourceTaskKind(t *testing.T) {
	k, ok := domain.SourceFixedPayment.TaskKind()
	assert.True(t, ok)
	assert.Equal(t, domain.TaskKindFixedPayment, k)

	_, ok = domain.SourceDispute.TaskKind()
	assert.False(t, ok)
}

func TestNormalizeAddress(t *testing.T) {
	a, err := domain.NormalizeAddress("  0xABCDEFabcdef0123456789ABCDEFabcdef012345 ")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdefabcdef0123456789abcdefabcdef012345", a)

	for _, bad := range []string{"", "0x123", "abcdefabcdef0123456789abcdefabcdef01234567", "0xzzcdefabcdef0123456789abcdefabcdef012345"} {
		_, err := domain.NormalizeAddress(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidAddress, bad)
	}

	assert.True(t, domain.IsZeroAddress(domain.ZeroAddress))
	assert.False(t, (&domain.Task{Worker: domain.ZeroAddress}).HasWorker())
}

func TestPositionOrder(t *testing.T) {
	assert.True(t, domain.Position{Block: 1, LogIndex: 9}.Less(domain.Position{Block: 2}))
	assert.True(t, domain.Position{Block: 2, LogIndex: 0}.Less(domain.Position{Block: 2, LogIndex: 1}))
	assert.False(t, domain.Position{Block: 2, LogIndex: 1}.Less(domain.Position{Block: 2, LogIndex: 1}))
	assert.Equal(t, "12:3", domain.Position{Block: 12, LogIndex: 3}.String())
}

func TestMilestoneStage(t *testing.T) {
	m := &domain.Milestone{}
	assert.Equal(t, domain.MilestoneUnsubmitted, m.Stage())

	m.WorkProof.Submitted = true
	assert.Equal(t, domain.MilestoneSubmitted, m.Stage())

	m.WorkProof.Approved = true
	assert.Equal(t, domain.MilestoneApproved, m.Stage())

	m.Paid = true
	assert.Equal(t, domain.MilestonePaid, m.Stage())
	assert.Equal(t, "paid", m.Stage().String())
}

func TestCompositeIDs(t *testing.T) {
	assert.Equal(t, "5-0xabc", domain.BidID("5", "0xabc"))
	assert.Equal(t, "5-2", domain.MilestoneID("5", 2))
	assert.Equal(t, "9-0xabc", domain.VoteID("9", "0xabc"))
}

func TestEntityID(t *testing.T) {
	assert.Equal(t, "7", domain.EntityID(json.Number("007")))
	assert.Equal(t, "115792089237316195423570985008687907853269984665640564039457584007913129639935",
		domain.EntityID(json.Number("115792089237316195423570985008687907853269984665640564039457584007913129639935")))
}

func TestParamsNormalize(t *testing.T) {
	p := &domain.DisputeFiledParams{
		DisputeID:    "1",
		TaskID:       "2",
		TaskContract: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		Worker:       "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB",
		TaskCreator:  "0xcccccccccccccccccccccccccccccccccccccccc",
	}
	require.NoError(t, p.Normalize())
	assert.Equal(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", p.Worker)

	p.Worker = "nobody"
	assert.ErrorIs(t, p.Normalize(), domain.ErrInvalidAddress)

	missing := &domain.TaskRefParams{}
	assert.ErrorIs(t, missing.Normalize(), domain.ErrInvalidEvent)

	notNumeric := &domain.TaskRefParams{TaskID: "abc"}
	assert.ErrorIs(t, notNumeric.Normalize(), domain.ErrInvalidEvent)
}

func TestIsSkippable(t *testing.T) {
	assert.True(t, domain.IsSkippable(fmt.Errorf("wrap: %w", domain.ErrMissingParent)))
	assert.True(t, domain.IsSkippable(domain.ErrInvalidTransition))
	assert.True(t, domain.IsSkippable(domain.ErrDuplicateCreation))
	assert.False(t, domain.IsSkippable(domain.ErrInvalidEvent))
}

func TestIDsMustBeUint256(t *testing.T) {
	for _, id := range []string{"1.5", "-3", "1e-2"} {
		p := &domain.TaskCreatedParams{TaskID: json.Number(id), Creator: domain.ZeroAddress}
		assert.ErrorIs(t, p.Normalize(), domain.ErrInvalidEvent, id)
	}

	for _, id := range []string{"0", "42", "1e3"} {
		p := &domain.TaskCreatedParams{TaskID: json.Number(id), Creator: domain.ZeroAddress}
		assert.NoError(t, p.Normalize(), id)
	}
	assert.Equal(t, "1000", domain.EntityID("1e3"))
}

func TestAmountsMustBeUint256(t *testing.T) {
	bad := []decimal.Decimal{decimal.NewFromInt(-1), decimal.RequireFromString("0.5")}
	for _, amount := range bad {
		cases := map[string]domain.Normalizer{
			"BidSubmitted":    &domain.BidSubmittedParams{TaskID: "1", Bidder: domain.ZeroAddress, Amount: amount},
			"WorkerAdded":     &domain.WorkerAddedParams{TaskID: "1", Worker: domain.ZeroAddress, Amount: amount},
			"MilestoneAdded":  &domain.MilestoneAddedParams{TaskID: "1", Reward: amount},
			"TaskPaid":        &domain.TaskAmountParams{TaskID: "1", Amount: amount},
			"AdminVoted":      &domain.AdminVotedParams{DisputeID: "1", Admin: domain.ZeroAddress, WorkerShare: amount},
			"DisputeResolved": &domain.DisputeResolvedParams{DisputeID: "1", WorkerShare: amount},
			"AdminStaked":     &domain.AdminStakeParams{Admin: domain.ZeroAddress, Amount: amount},
			"DisputeFiled": &domain.DisputeFiledParams{
				DisputeID: "1", TaskID: "1", RewardAmount: amount,
				TaskContract: domain.ZeroAddress, Worker: domain.ZeroAddress, TaskCreator: domain.ZeroAddress,
			},
		}
		for name, p := range cases {
			assert.ErrorIs(t, p.Normalize(), domain.ErrInvalidEvent, "%s with %s", name, amount)
		}
	}

	ok := &domain.TaskAmountParams{TaskID: "1", Amount: decimal.RequireFromString("115792089237316195423570985008687907853269984665640564039457584007913129639935")}
	assert.NoError(t, ok.Normalize())
	assert.NoError(t, (&domain.TaskAmountParams{TaskID: "1"}).Normalize(), "omitted amount is zero")
}
