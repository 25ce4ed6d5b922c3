package domain

// Challenge is what a player must solve to complete a step.
// Implemented only by Riddle and Choice; switch on the concrete type.
type Challenge interface {
	Kind() StepKind
	challenge()
}

// Riddle expects a free-text answer.
type Riddle struct {
	Answer string `json:"answer" yaml:"answer"`
}

func (Riddle) Kind() StepKind { return KindRiddle }
func (Riddle) challenge()     {}

// Choice expects the index of the correct entry in Choices.
type Choice struct {
	Choices      []string `json:"choices" yaml:"choices"`
	CorrectIndex int      `json:"correctIndex" yaml:"correctIndex"`
}

func (Choice) Kind() StepKind { return KindChoice }
func (Choice) challenge()     {}

// Step is one immutable unit of a hunt.
type Step struct {
	ID        string
	Title     string
	Prompt    string
	Hint      string
	Success   string
	Challenge Challenge
}

// Hunt is the ordered step list plus its title.
type Hunt struct {
	Title string
	Steps []Step
}

// ProgressState is the persisted progression of one player.
type ProgressState struct {
	CurrentIndex   int             `json:"currentIndex"`
	Done           map[string]bool `json:"done"`
	StepValidation map[string]bool `json:"stepValidation"`
}

// Snapshot is a read-only view of progress plus derived navigation state.
type Snapshot struct {
	CurrentIndex    int             `json:"currentIndex"`
	CurrentStepID   string          `json:"currentStepId"`
	NextStepID      string          `json:"nextStepId"`
	ResumeIndex     int             `json:"resumeIndex"`
	Done            []string        `json:"done"`
	StepValidation  map[string]bool `json:"stepValidation"`
	TotalSteps      int             `json:"totalSteps"`
	CanGoNext       bool            `json:"canGoNext"`
	CanGoPrevious   bool            `json:"canGoPrevious"`
	IsHuntCompleted bool            `json:"isHuntCompleted"`
}

// ScreensState records which onboarding screens a player has seen.
type ScreensState struct {
	HasSeenSplash bool `json:"hasSeenSplash"`
	HasSeenIntro  bool `json:"hasSeenIntro"`
}
