package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventDealCreated    = "deal.created"
	EventDealDelivered  = "deal.delivered"
	EventDealDisputed   = "deal.disputed"
	EventDealSettled    = "deal.settled"
	EventDealRefunded   = "deal.refunded"
	EventGrantCreated   = "grant.created"
	EventGrantAttested  = "grant.attested"
	EventGrantWithdrawn = "grant.withdrawn"
	EventGrantRefunded  = "grant.refunded"
	EventSplitDefined   = "split.defined"
	EventPayoutExecuted = "payout.executed"
	EventFeePolicySet   = "fee_policy.updated"
)

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventDealCreated, EventDealDelivered, EventDealDisputed,
		EventDealSettled, EventDealRefunded,
		EventGrantCreated, EventGrantAttested, EventGrantWithdrawn, EventGrantRefunded,
		EventSplitDefined, EventPayoutExecuted, EventFeePolicySet:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventDealSettled, EventDealRefunded, EventGrantWithdrawn,
		EventGrantRefunded, EventPayoutExecuted:
		return CanonicalEventClassDomain
	case EventFeePolicySet:
		return CanonicalEventClassOps
	case EventDealCreated, EventDealDelivered, EventDealDisputed,
		EventGrantCreated, EventGrantAttested, EventSplitDefined:
		return CanonicalEventClassAnalyticsOnly
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch eventType {
	case EventDealCreated, EventDealDelivered, EventDealDisputed,
		EventDealSettled, EventDealRefunded:
		return "data.deal_id"
	case EventGrantCreated, EventGrantAttested, EventGrantWithdrawn, EventGrantRefunded:
		return "data.grant_id"
	case EventSplitDefined:
		return "data.split_id"
	case EventPayoutExecuted:
		return "data.payout_id"
	case EventFeePolicySet:
		return "data.updated_by"
	default:
		return ""
	}
}
