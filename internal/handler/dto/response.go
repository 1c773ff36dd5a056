package dto

import (
	"time"

	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/mtlprog/taskindexer/internal/query"
	"github.com/mtlprog/taskindexer/internal/store"
)

// Amounts are uint256 values rendered as decimal strings.

// Task represents a task in list and detail views.
type Task struct {
	Kind         string    `json:"kind"`
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Creator      string    `json:"creator"`
	Worker       string    `json:"worker"`
	Reward       string    `json:"reward"`
	Deadline     int64     `json:"deadline"`
	Status       string    `json:"status"`
	ProofOfWork  string    `json:"proofOfWork"`
	BidIDs       []string  `json:"bidIds,omitempty"`
	MilestoneIDs []string  `json:"milestoneIds,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TasksListResponse represents the response for GET /tasks.
type TasksListResponse struct {
	Tasks []Task `json:"tasks"`
	First int    `json:"first"`
	Skip  int    `json:"skip"`
}

// TaskDetailResponse is a task with its bids or milestones.
type TaskDetailResponse struct {
	Task       Task        `json:"task"`
	Bids       []Bid       `json:"bids"`
	Milestones []Milestone `json:"milestones"`
}

// Bid represents a bid on a bidding task.
type Bid struct {
	ID            string    `json:"id"`
	TaskID        string    `json:"taskId"`
	Bidder        string    `json:"bidder"`
	Amount        string    `json:"amount"`
	EstimatedTime int64     `json:"estimatedTime"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"createdAt"`
}

// BidsResponse represents the response for GET /users/{address}/bids.
type BidsResponse struct {
	Bids []Bid `json:"bids"`
}

// Milestone represents one milestone of a milestone task.
type Milestone struct {
	ID          string     `json:"id"`
	TaskID      string     `json:"taskId"`
	Index       uint32     `json:"index"`
	Description string     `json:"description"`
	Reward      string     `json:"reward"`
	Paid        bool       `json:"paid"`
	Stage       string     `json:"stage"`
	CompletedAt *time.Time `json:"completedAt"`
	WorkProof   WorkProof  `json:"workProof"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// WorkProof is the proof embedded in a milestone.
type WorkProof struct {
	Proof       string     `json:"proof"`
	Submitted   bool       `json:"submitted"`
	Approved    bool       `json:"approved"`
	SubmittedAt *time.Time `json:"submittedAt"`
}

// Dispute represents a dispute in list and detail views.
type Dispute struct {
	ID              string     `json:"id"`
	TaskID          string     `json:"taskId"`
	TaskContract    string     `json:"taskContract"`
	Worker          string     `json:"worker"`
	TaskCreator     string     `json:"taskCreator"`
	RewardAmount    string     `json:"rewardAmount"`
	WorkerShare     string     `json:"workerShare"`
	ProofOfWork     string     `json:"proofOfWork"`
	Status          string     `json:"status"`
	WorkerApproved  bool       `json:"workerApproved"`
	CreatorApproved bool       `json:"creatorApproved"`
	VoteIDs         []string   `json:"voteIds"`
	CreatedAt       time.Time  `json:"createdAt"`
	ResolvedAt      *time.Time `json:"resolvedAt"`
	DistributedAt   *time.Time `json:"distributedAt"`
}

// DisputesListResponse represents the response for GET /disputes.
type DisputesListResponse struct {
	Disputes []Dispute `json:"disputes"`
	First    int       `json:"first"`
	Skip     int       `json:"skip"`
}

// DisputeDetailResponse is a dispute with its current votes.
type DisputeDetailResponse struct {
	Dispute Dispute `json:"dispute"`
	Votes   []Vote  `json:"votes"`
}

// Vote represents one admin vote.
type Vote struct {
	ID          string    `json:"id"`
	DisputeID   string    `json:"disputeId"`
	Admin       string    `json:"admin"`
	WorkerShare string    `json:"workerShare"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Admin represents a staked dispute admin.
type Admin struct {
	Address     string    `json:"address"`
	StakeAmount string    `json:"stakeAmount"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AdminsListResponse represents the response for GET /admins.
type AdminsListResponse struct {
	Admins []Admin `json:"admins"`
}

// User represents a wallet identity with its optional profile and skills.
type User struct {
	Address   string       `json:"address"`
	Profile   *UserProfile `json:"profile"`
	Skills    []string     `json:"skills"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// UserProfile holds self-reported profile data.
type UserProfile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Bio     string `json:"bio"`
	Website string `json:"website"`
}

// StatsResponse represents the response for GET /stats.
type StatsResponse struct {
	Users           int                       `json:"users"`
	Tasks           map[string]map[string]int `json:"tasks"`
	Disputes        map[string]int            `json:"disputes"`
	ActiveAdmins    int                       `json:"activeAdmins"`
	TotalAdminStake string                    `json:"totalAdminStake"`
}

// ToTask converts a domain task.
func ToTask(t *domain.Task) Task {
	return Task{
		Kind:         string(t.Kind),
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Creator:      t.Creator,
		Worker:       t.Worker,
		Reward:       t.Reward.String(),
		Deadline:     t.Deadline,
		Status:       string(t.Status),
		ProofOfWork:  t.ProofOfWork,
		BidIDs:       t.BidIDs,
		MilestoneIDs: t.MilestoneIDs,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// ToTasks converts a task listing.
func ToTasks(tasks []*domain.Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = ToTask(t)
	}
	return out
}

// ToTaskDetail converts a task view.
func ToTaskDetail(v *query.TaskView) TaskDetailResponse {
	resp := TaskDetailResponse{
		Task:       ToTask(v.Task),
		Bids:       ToBids(v.Bids),
		Milestones: make([]Milestone, len(v.Milestones)),
	}
	for i, m := range v.Milestones {
		resp.Milestones[i] = ToMilestone(m)
	}
	return resp
}

// ToBids converts bids.
func ToBids(bids []*domain.Bid) []Bid {
	out := make([]Bid, len(bids))
	for i, b := range bids {
		out[i] = Bid{
			ID:            b.ID,
			TaskID:        b.TaskID,
			Bidder:        b.Bidder,
			Amount:        b.Amount.String(),
			EstimatedTime: b.EstimatedTime,
			Description:   b.Description,
			CreatedAt:     b.CreatedAt,
		}
	}
	return out
}

// ToMilestone converts a milestone.
func ToMilestone(m *domain.Milestone) Milestone {
	return Milestone{
		ID:          m.ID,
		TaskID:      m.TaskID,
		Index:       m.Index,
		Description: m.Description,
		Reward:      m.Reward.String(),
		Paid:        m.Paid,
		Stage:       m.Stage().String(),
		CompletedAt: m.CompletedAt,
		WorkProof: WorkProof{
			Proof:       m.WorkProof.Proof,
			Submitted:   m.WorkProof.Submitted,
			Approved:    m.WorkProof.Approved,
			SubmittedAt: m.WorkProof.SubmittedAt,
		},
		CreatedAt: m.CreatedAt,
	}
}

// ToDispute converts a domain dispute.
func ToDispute(d *domain.Dispute) Dispute {
	voteIDs := d.VoteIDs
	if voteIDs == nil {
		voteIDs = []string{}
	}
	return Dispute{
		ID:              d.ID,
		TaskID:          d.TaskID,
		TaskContract:    d.TaskContract,
		Worker:          d.Worker,
		TaskCreator:     d.TaskCreator,
		RewardAmount:    d.RewardAmount.String(),
		WorkerShare:     d.WorkerShare.String(),
		ProofOfWork:     d.ProofOfWork,
		Status:          string(d.Status),
		WorkerApproved:  d.WorkerApproved,
		CreatorApproved: d.CreatorApproved,
		VoteIDs:         voteIDs,
		CreatedAt:       d.CreatedAt,
		ResolvedAt:      d.ResolvedAt,
		DistributedAt:   d.DistributedAt,
	}
}

// ToDisputes converts a dispute listing.
func ToDisputes(disputes []*domain.Dispute) []Dispute {
	out := make([]Dispute, len(disputes))
	for i, d := range disputes {
		out[i] = ToDispute(d)
	}
	return out
}

// ToDisputeDetail converts a dispute view.
func ToDisputeDetail(v *query.DisputeView) DisputeDetailResponse {
	resp := DisputeDetailResponse{
		Dispute: ToDispute(v.Dispute),
		Votes:   make([]Vote, len(v.Votes)),
	}
	for i, vote := range v.Votes {
		resp.Votes[i] = Vote{
			ID:          vote.ID,
			DisputeID:   vote.DisputeID,
			Admin:       vote.Admin,
			WorkerShare: vote.WorkerShare.String(),
			CreatedAt:   vote.CreatedAt,
		}
	}
	return resp
}

// ToAdmin converts an admin.
func ToAdmin(a *domain.Admin) Admin {
	return Admin{
		Address:     a.Address,
		StakeAmount: a.StakeAmount.String(),
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// ToAdmins converts an admin listing.
func ToAdmins(admins []*domain.Admin) []Admin {
	out := make([]Admin, len(admins))
	for i, a := range admins {
		out[i] = ToAdmin(a)
	}
	return out
}

// ToUser converts a user.
func ToUser(u *domain.User) User {
	resp := User{
		Address:   u.Address,
		Skills:    []string{},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Profile != nil {
		resp.Profile = &UserProfile{
			Name:    u.Profile.Name,
			Email:   u.Profile.Email,
			Bio:     u.Profile.Bio,
			Website: u.Profile.Website,
		}
	}
	if u.Skills != nil && u.Skills.Skills != nil {
		resp.Skills = u.Skills.Skills
	}
	return resp
}

// ToStats converts aggregate counts.
func ToStats(s *store.Stats) StatsResponse {
	resp := StatsResponse{
		Users:           s.Users,
		Tasks:           make(map[string]map[string]int, len(s.Tasks)),
		Disputes:        make(map[string]int, len(s.Disputes)),
		ActiveAdmins:    s.ActiveAdmins,
		TotalAdminStake: s.TotalAdminStake.String(),
	}
	for kind, byStatus := range s.Tasks {
		m := make(map[string]int, len(byStatus))
		for status, n := range byStatus {
			m[string(status)] = n
		}
		resp.Tasks[string(kind)] = m
	}
	for status, n := range s.Disputes {
		resp.Disputes[string(status)] = n
	}
	return resp
}
