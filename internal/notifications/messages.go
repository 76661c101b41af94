package notifications

import (
	"fmt"
	"time"

	"github.com/netaconnect/billing-backend/internal/subscriptions"
	"github.com/netaconnect/billing-backend/pkg/enums"
	"github.com/netaconnect/billing-backend/pkg/notify"
)

// Expired is the push sent when a plan lapses.
func Expired(token, planID, userID string) notify.Notification {
	name := subscriptions.PlanDisplayName(planID)
	return notify.Notification{
		Token: token,
		Title: fmt.Sprintf("%s Plan Expired", name),
		Body:  fmt.Sprintf("Your %s plan has expired. Upgrade to continue enjoying premium features.", name),
		Data: map[string]string{
			"type":   enums.NotificationTypeSubscriptionExpired.String(),
			"planId": planID,
			"userId": userID,
		},
	}
}

// Warning is the push sent ahead of expiry.
func Warning(token, planID, userID string, lead time.Duration) notify.Notification {
	name := subscriptions.PlanDisplayName(planID)
	label := ExpiresInLabel(lead)
	return notify.Notification{
		Token: token,
		Title: fmt.Sprintf("%s Plan Expires Soon", name),
		Body:  fmt.Sprintf("Your %s plan expires in %s. Renew now to avoid service interruption.", name, label),
		Data: map[string]string{
			"type":      enums.NotificationTypeSubscriptionWarning.String(),
			"planId":    planID,
			"userId":    userID,
			"expiresIn": label,
		},
	}
}

// ExpiresInLabel renders a lead time for notification copy.
func ExpiresInLabel(lead time.Duration) string {
	hours := int(lead / time.Hour)
	switch hours {
	case 72:
		return "3 days"
	case 24:
		return "1 day"
	case 1:
		return "1 hour"
	default:
		return fmt.Sprintf("%d hours", hours)
	}
}
