package domain

// CaptureOutcome is the kind of result a voice capture cycle produced
type CaptureOutcome string

const (
	CaptureTranscript CaptureOutcome = "transcript"
	CaptureError      CaptureOutcome = "error"
	CaptureEnded      CaptureOutcome = "ended"
)

// CaptureResult is emitted exactly once per start/stop cycle of a voice capture
type CaptureResult struct {
	Outcome    CaptureOutcome `json:"outcome"`
	Transcript string         `json:"transcript,omitempty"`
	Err        error          `json:"-"`
}

func TranscriptResult(text string) CaptureResult {
	return CaptureResult{Outcome: CaptureTranscript, Transcript: text}
}

func ErrorResult(err error) CaptureResult {
	return CaptureResult{Outcome: CaptureError, Err: err}
}

func EndedResult() CaptureResult {
	return CaptureResult{Outcome: CaptureEnded}
}
