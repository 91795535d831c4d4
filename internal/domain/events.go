package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
)

const (
	EventFlowStateChanged    = "collaboration.flow_state_changed"
	EventSettlementOpened    = "settlement.opened"
	EventSettlementMilestone = "settlement.milestone"
	EventPaymentVerified     = "payment.verified"
)

func IsCanonicalInputEvent(eventType string) bool {
	return eventType == EventPaymentVerified
}

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventFlowStateChanged, EventSettlementOpened, EventSettlementMilestone:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventFlowStateChanged, EventSettlementMilestone:
		return CanonicalEventClassDomain
	case EventSettlementOpened:
		return CanonicalEventClassAnalyticsOnly
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	if IsCanonicalEmittedEvent(eventType) || IsCanonicalInputEvent(eventType) {
		return "data.collaboration_id"
	}
	return ""
}

type MilestoneKind string

const (
	MilestonePaymentReceived MilestoneKind = "payment_received"
	MilestoneAdvanceReleased MilestoneKind = "advance_released"
	MilestoneFinalReleased   MilestoneKind = "final_released"
	MilestoneRefunded        MilestoneKind = "refunded"
)
