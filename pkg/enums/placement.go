package enums

// PlacementPriority orders competing highlight placements within a ward.
type PlacementPriority string

const (
	PlacementPriorityNormal PlacementPriority = "normal"
	PlacementPriorityHigh   PlacementPriority = "high"
)

// FeedPostKind classifies system-generated feed entries.
type FeedPostKind string

const (
	FeedPostKindWelcome      FeedPostKind = "welcome"
	FeedPostKindAnnouncement FeedPostKind = "announcement"
)
