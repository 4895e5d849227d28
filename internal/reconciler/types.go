package reconciler

import (
	"errors"
	"time"

	"github.com/giantswarm/locksmith/internal/clock"
	"github.com/giantswarm/locksmith/internal/lockstore"
	"github.com/giantswarm/locksmith/internal/pacing"
	"github.com/giantswarm/locksmith/internal/taskqueue"
)

// errNotAttached is returned by tasks that run while no session is live.
var errNotAttached = errors.New("no remote session attached")

// Persister saves the full set of records. *lockstore.Store satisfies it.
type Persister interface {
	Save(recs lockstore.Records) error
}

// Enqueuer accepts tasks. *taskqueue.Queues satisfies it.
type Enqueuer interface {
	Enqueue(task taskqueue.Task) bool
}

// Config wires an Engine.
type Config struct {
	Store  Persister
	Queues Enqueuer
	Pacing *pacing.Policy
	Clock  clock.Clock

	// OperatorID overrides the logged-in account as the operator.
	OperatorID string

	// NicknameChangeLimit corrections put a target into cooldown for
	// NicknameCooldown.
	NicknameChangeLimit int
	NicknameCooldown    time.Duration

	// TargetSpacing is the random wait between targets in ReconcileAll.
	TargetSpacing pacing.Band

	// RevertGrace is how long a diverged title is tolerated before it is
	// reverted. MaxTitleChecksPerTick bounds the targets PollTitles reads.
	RevertGrace           time.Duration
	MaxTitleChecksPerTick int

	// TypingSpacing separates typing indicators in SendKeepAlive.
	TypingSpacing time.Duration

	Metrics *Metrics
}

func (c *Config) applyDefaults() {
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Pacing == nil {
		c.Pacing = pacing.NewPolicy(
			pacing.Band{Min: 4 * time.Second, Max: 5 * time.Second},
			pacing.Band{Min: 12 * time.Second, Max: 13 * time.Second},
		)
	}
	if c.NicknameChangeLimit <= 0 {
		c.NicknameChangeLimit = 50
	}
	if c.NicknameCooldown <= 0 {
		c.NicknameCooldown = 5 * time.Minute
	}
	if c.RevertGrace <= 0 {
		c.RevertGrace = 47 * time.Second
	}
	if c.MaxTitleChecksPerTick <= 0 {
		c.MaxTitleChecksPerTick = 5
	}
}

// TitleState is where a target sits in the title-lock state machine.
type TitleState int

const (
	TitleStable TitleState = iota
	TitleDiverged
	TitleRevertInProgress
)

func (s TitleState) String() string {
	switch s {
	case TitleStable:
		return "Stable"
	case TitleDiverged:
		return "Diverged"
	case TitleRevertInProgress:
		return "RevertInProgress"
	default:
		return "Unknown"
	}
}

// Observation says where a title reading came from.
type Observation int

const (
	FromPoll Observation = iota
	FromEvent
)

// Summary is a point-in-time view of the engine, served on /healthz.
type Summary struct {
	Attached        bool   `json:"attached"`
	OperatorID      string `json:"operatorId,omitempty"`
	Targets         int    `json:"targets"`
	Enabled         int    `json:"enabled"`
	TitleLocked     int    `json:"titleLocked"`
	InCooldown      int    `json:"inCooldown"`
	TitlesDiverged  int    `json:"titlesDiverged"`
	RevertsInFlight int    `json:"revertsInFlight"`
	QueuedMembers   int    `json:"queuedMembers"`
}
