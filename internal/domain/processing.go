package domain

import "unicode/utf8"

// StageStatus tracks one phase of a processing attempt.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
	StageFailed     StageStatus = "failed"
)

// Stage names, in execution order.
const (
	StageImageEnhancement = "Image Enhancement"
	StageTextRecognition  = "Text Recognition"
	StagePostProcessing   = "Post-processing"
)

// Stage is one named phase with its completion state and duration.
type Stage struct {
	Name     string      `json:"name"`
	Status   StageStatus `json:"status"`
	Progress int         `json:"progress"`
	TimeMs   int64       `json:"timeMs"`
}

// ProcessingResult is the outcome of one recognition attempt. It is also
// stored verbatim as the document's processing summary.
type ProcessingResult struct {
	DocumentID     int64   `json:"documentId"`
	ExtractedText  string  `json:"extractedText"`
	Confidence     int     `json:"confidence"`
	ProcessingTime int64   `json:"processingTime"`
	CharCount      int     `json:"charCount"`
	Stages         []Stage `json:"stages"`
	// Degraded is set when ExtractedText is placeholder content rather than
	// recognizer output.
	Degraded bool `json:"degraded"`
}

// Clone copies the result including its stage slice.
func (r ProcessingResult) Clone() ProcessingResult {
	out := r
	if r.Stages != nil {
		out.Stages = make([]Stage, len(r.Stages))
		copy(out.Stages, r.Stages)
	}
	return out
}

// CountChars returns the character count used for charCount.
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// PendingStages returns the initial stage list of an attempt: enhancement
// running, the rest waiting.
func PendingStages() []Stage {
	return []Stage{
		{Name: StageImageEnhancement, Status: StageInProgress},
		{Name: StageTextRecognition, Status: StagePending},
		{Name: StagePostProcessing, Status: StagePending},
	}
}

// CompletedStages builds three completed stages with the given durations.
func CompletedStages(enhancementMs, recognitionMs, postMs int64) []Stage {
	return []Stage{
		{Name: StageImageEnhancement, Status: StageCompleted, Progress: 100, TimeMs: enhancementMs},
		{Name: StageTextRecognition, Status: StageCompleted, Progress: 100, TimeMs: recognitionMs},
		{Name: StagePostProcessing, Status: StageCompleted, Progress: 100, TimeMs: postMs},
	}
}

// SplitElapsed distributes a single measured duration over the three stages
// as 30/50/20 percent.
func SplitElapsed(totalMs int64) []Stage {
	return CompletedStages(totalMs*30/100, totalMs*50/100, totalMs*20/100)
}

// TotalStageTime sums the stage durations.
func TotalStageTime(stages []Stage) int64 {
	var total int64
	for _, s := range stages {
		total += s.TimeMs
	}
	return total
}
