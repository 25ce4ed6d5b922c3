package domain

// StepKind tags the challenge carried by a step.
type StepKind string

const (
	KindRiddle StepKind = "riddle" // free-text answer
	KindChoice StepKind = "choice" // pick one of an ordered list
)

// Storage keys shared by the stores living in one session namespace.
const (
	KeyProgress      = "progress"
	KeyHasSeenSplash = "hasSeenSplash"
	KeyHasSeenIntro  = "hasSeenIntro"
)
