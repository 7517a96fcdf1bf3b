package msgs

// Inbound topics.
const (
	TopicMode             = "mode"
	TopicAprilTags        = "apriltags"
	TopicSignalsDetection = "signals_detection"
)

// Outbound topics.
const (
	TopicClearanceToGo      = "clearance_to_go"
	TopicIntersectionGo     = "intersection_go"
	TopicChangeColorPattern = "change_color_pattern"
	TopicCarCmd             = "car_cmd"
	TopicCoordinationState  = "coordination_state"
)

// InboundTopics lists every topic the coordinator node consumes.
var InboundTopics = []string{TopicMode, TopicAprilTags, TopicSignalsDetection}
