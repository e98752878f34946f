package capturesim

import "time"

// Config holds configuration for the capture simulation
type Config struct {
	BaseURL            string        // Base URL of the service
	NumSubjects        int           // Number of subjects to simulate
	CapturesPerSubject int           // Captures submitted per subject session
	Workers            int           // Number of concurrent workers
	Timeout            time.Duration // HTTP request timeout
	OutputFile         string        // Output file for generated captures
	LogFile            string        // Log file for simulation output
	Verbose            bool          // Enable verbose logging
}

// Capture represents a capture to be submitted
type Capture struct {
	SubjectID  string  `json:"subject_id,omitempty"`
	SessionID  string  `json:"session_id,omitempty"`
	RequestID  string  `json:"request_id,omitempty"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
	TS         string  `json:"ts"`
	Kind       string  `json:"capture_kind"`
	Module     string  `json:"module_context,omitempty"`
}

// Subject groups the captures planned for one simulated session.
type Subject struct {
	ID       string    `json:"subject_id"`
	Captures []Capture `json:"captures"`
}

// CaptureAck represents the response from capture submission
type CaptureAck struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	CaptureID string `json:"capture_id"`
	Duplicate bool   `json:"duplicate"`
}

// DominantEmotion mirrors the dominant entry of session statistics.
type DominantEmotion struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
}

// SessionStats mirrors the aggregate statistics of one session.
type SessionStats struct {
	TotalCaptures     int              `json:"total_captures"`
	EmotionCounts     map[string]int   `json:"emotion_counts"`
	DominantEmotion   *DominantEmotion `json:"dominant_emotion"`
	AverageConfidence float64          `json:"average_confidence"`
}

// SessionResult tracks one subject's session through the simulation.
type SessionResult struct {
	SubjectID string
	SessionID string
	Recorded  int
	Stats     *SessionStats

	duplicates int
	failures   int
}

// Stats holds simulation statistics
type Stats struct {
	SubjectsGenerated int
	CapturesGenerated int
	CapturesSubmitted int
	CapturesRecorded  int
	CapturesDuplicate int
	CapturesFailed    int
	SessionsOpened    int
	SessionsLinked    int
	StatsRetrieved    int
	StatsInconsistent int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
