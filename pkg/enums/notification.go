package enums

// NotificationType is carried in the push payload's data map as "type".
type NotificationType string

const (
	NotificationTypeSubscriptionExpired NotificationType = "subscription_expired"
	NotificationTypeSubscriptionWarning NotificationType = "subscription_warning"
)

func (n NotificationType) String() string {
	return string(n)
}
