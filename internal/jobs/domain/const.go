package domain

// JobType identifies the kind of work a job carries. Each type has a typed
// payload and a dedicated handler on the worker side.
type JobType string

const (
	// JobTypeGenerateDocument renders the loan contract document for an
	// approved proposal.
	JobTypeGenerateDocument JobType = "generate_document"
	// JobTypeSendForSignature creates a signature envelope with the
	// e-signature provider and dispatches it to the customer.
	JobTypeSendForSignature JobType = "send_for_signature"
	// JobTypeSyncPaymentStatus reconciles the payment status of a proposal
	// with the banking API.
	JobTypeSyncPaymentStatus JobType = "sync_payment_status"
	// JobTypeApplyTransition applies a proposal status transition requested by
	// a verified webhook. Ingestion acks the provider after queuing this job;
	// the transition itself runs on a worker.
	JobTypeApplyTransition JobType = "apply_transition"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	// JobStatusWaiting means the job is eligible (or scheduled) to run.
	JobStatusWaiting JobStatus = "waiting"
	// JobStatusActive means exactly one worker owns the job right now.
	JobStatusActive JobStatus = "active"
	// JobStatusCompleted is terminal: the job finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusDeadLetter is terminal: the retry budget is exhausted and the
	// job requires operator intervention.
	JobStatusDeadLetter JobStatus = "dead_letter"
)

// IsTerminal reports whether a job in this status may never transition again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusDeadLetter
}
