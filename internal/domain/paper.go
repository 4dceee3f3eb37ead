package domain

import "time"

// PaperPositionStatus represents the lifecycle of a hypothetical position.
type PaperPositionStatus string

const (
	PaperStatusOpen    PaperPositionStatus = "OPEN"
	PaperStatusClosed  PaperPositionStatus = "CLOSED"  // manual exit, pays taker fee
	PaperStatusSettled PaperPositionStatus = "SETTLED" // held to settlement, no exit fee
)

// WatchedGame links a live game to its contract ticker. The contract pays
// if the team on Side wins; Side is "home" unless set to "away".
type WatchedGame struct {
	GameID string `yaml:"game_id"`
	Ticker string `yaml:"ticker"`
	Side   string `yaml:"side"`
}

// AwayIsA reports whether the contract refers to the away team.
func (g WatchedGame) AwayIsA() bool { return g.Side == "away" }

// PaperSession is one run of the paper trading loop.
type PaperSession struct {
	ID             string
	StartedAt      time.Time
	EndedAt        *time.Time
	GamesMonitored int
	Strategies     int
	Notes          string
}

// PaperSignal is an entry signal the loop observed, traded or not.
type PaperSignal struct {
	ID          string
	SessionID   string
	GameID      string
	Strategy    string
	Timestamp   time.Time
	Price       float64
	Move        float64
	Direction   Direction
	Probability float64
	Taken       bool
	Reason      string // why it was skipped, if it was
}

// PaperPosition is a hypothetical position opened by the loop.
type PaperPosition struct {
	ID          string
	SessionID   string
	GameID      string
	Ticker      string
	Strategy    string
	Direction   Direction
	Contracts   int
	EntryTime   time.Time
	EntryPrice  float64
	TargetExit  time.Time
	HoldToClose bool // hold to settlement instead of exiting at TargetExit
	Status      PaperPositionStatus
	ExitTime    *time.Time
	ExitPrice   float64
	Trade       *Trade // filled in when the position closes
}

// IsOpen reports whether the position still has market exposure.
func (p PaperPosition) IsOpen() bool { return p.Status == PaperStatusOpen }

// DueAt reports whether the hold period has elapsed at now.
func (p PaperPosition) DueAt(now time.Time) bool {
	return !p.HoldToClose && !now.Before(p.TargetExit)
}

// PaperStats is the aggregate view across all paper sessions.
type PaperStats struct {
	Sessions      int
	Signals       int
	SignalsTaken  int
	Trades        int
	OpenPositions int
	Wins          int
	WinRate       float64
	TotalGrossPL  float64
	TotalFees     float64
	TotalNetPL    float64
	Settled       int
	FirstTrade    time.Time
	LastTrade     time.Time
	ByStrategy    []PaperStrategyStats
}

// PaperStrategyStats breaks PaperStats down per strategy.
type PaperStrategyStats struct {
	Strategy string
	Trades   int
	Wins     int
	NetPL    float64
}
