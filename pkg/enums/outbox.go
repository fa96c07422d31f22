package enums

// OutboxEventType enumerates the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventGroupBuyCreated     OutboxEventType = "groupbuy.created"
	EventGroupBuyConfirmed   OutboxEventType = "groupbuy.confirmed"
	EventGroupBuyExpired     OutboxEventType = "groupbuy.expired"
	EventGroupBuyCancelled   OutboxEventType = "groupbuy.cancelled"
	EventParticipantJoined   OutboxEventType = "groupbuy.participant_joined"
	EventParticipantAmended  OutboxEventType = "groupbuy.participant_amended"
	EventParticipantWithdrew OutboxEventType = "groupbuy.participant_withdrew"
)

// OutboxAggregateType identifies the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateGroupBuy OutboxAggregateType = "group_buy"
)
