package graph

// Node labels
const (
	LabelPost       = "Post"
	LabelComment    = "Comment"
	LabelSubscriber = "Subscriber"
	LabelExpert     = "Expert"
)
