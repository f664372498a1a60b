package engine

// Status labels one phase of an orchestrated execution. Exactly one terminal
// status (completed or failed) is emitted per run.
type Status string

const (
	StatusApproving   Status = "approving"
	StatusSupplying   Status = "supplying"
	StatusWithdrawing Status = "withdrawing"
	StatusDepositing  Status = "depositing"
	StatusRedeeming   Status = "redeeming"
	StatusSwapping    Status = "swapping"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Update is one progress event. Stage orders the steps of multi-leg flows;
// single-leg flows leave it at zero.
type Update struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	TxHash  string `json:"tx_hash,omitempty"`
	Stage   int    `json:"stage"`
}

// Sink receives progress updates. A nil sink is valid and drops them.
type Sink func(Update)

func (s Sink) emit(u Update) {
	if s != nil {
		s(u)
	}
}

// Recorder is a Sink that retains every update, mainly for tests and the
// execution journal.
type Recorder struct {
	Updates []Update
}

func (r *Recorder) Sink() Sink {
	return func(u Update) { r.Updates = append(r.Updates, u) }
}
