package messaging

// Exchange Names
const (
	PlayEventsExchangeName = "play_events_exchange"
)

// Routing keys
const (
	RoutingKeyPlayCompleted = "play.completed"
)
