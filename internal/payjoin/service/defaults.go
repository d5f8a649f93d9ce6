package service

import "time"

const (
	requestTotalDuration = time.Hour
	retryInterval        = 3 * time.Second
	requestTimeout       = 30 * time.Second
)

// Attempt and negotiation outcomes reported to metrics.
const (
	outcomeTransportError = "transport_error"
	outcomeEmpty          = "empty"
	outcomeRejected       = "rejected"
	outcomeInvalid        = "invalid"
	outcomeProposal       = "proposal"
	outcomeTimedOut       = "timed_out"
	outcomeFailed         = "failed"
	outcomeStopped        = "stopped"
	outcomePending        = "pending"
)

const reasonTimedOut = "timed out"
