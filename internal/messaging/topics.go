package messaging

// NotificationsTopic carries domain.NotificationEvent payloads from the
// orders service to the notification worker.
const (
	NotificationsTopic = "order.notifications"
	WorkerGroupID      = "notification-worker"
)
