package taskname

const (
	// Tier tasks
	TierChanged = "yapper:tier:changed"

	// Run tasks
	PointsRunCompleted = "yapper:points:run:completed"
)
