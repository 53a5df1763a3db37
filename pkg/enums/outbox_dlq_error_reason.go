package enums

import "slices"

// OutboxDLQErrorReason records why the publisher gave up on an outbox row.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: transient publish failures ran out of attempts.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: the row could not be decoded or routed.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUnknownTopic: no publisher exists for the routed topic.
	OutboxDLQReasonUnknownTopic OutboxDLQErrorReason = "unknown_topic"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return slices.Contains([]OutboxDLQErrorReason{
		OutboxDLQReasonMaxAttempts,
		OutboxDLQReasonNonRetryable,
		OutboxDLQReasonUnknownTopic,
	}, r)
}
