package models

// Realtime topics and the event types published on them.
const (
	TopicQueue = "queue"
	TopicAdmin = "admin"

	EventQueueUpdated    = "queue.updated"
	EventTicketCompleted = "ticket.completed"
	// EventAdminRevoked tells a client its admin subscription was dropped
	// because the session behind it is no longer valid.
	EventAdminRevoked = "admin.revoked"
)
