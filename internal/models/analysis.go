package models

// AnalysisStatus represents the status of an analysis run.
type AnalysisStatus string

const (
	AnalysisStatusPending  AnalysisStatus = "pending"
	AnalysisStatusRunning  AnalysisStatus = "running"
	AnalysisStatusComplete AnalysisStatus = "complete"
	AnalysisStatusError    AnalysisStatus = "error"
)

// Analysis represents one run of the cleaning and profiling pipeline
// over an uploaded CSV file.
type Analysis struct {
	ID               string          `json:"id"`
	FileID           string          `json:"fileId"`
	FileName         string          `json:"fileName,omitempty"`
	Status           AnalysisStatus  `json:"status"`
	Progress         float64         `json:"progress"` // 0-100
	Stage            string          `json:"stage,omitempty"`
	RowCount         int             `json:"rowCount,omitempty"`
	ColumnCount      int             `json:"columnCount,omitempty"`
	CleaningActions  int             `json:"cleaningActions,omitempty"`
	ProcessingTimeMs int64           `json:"processingTimeMs,omitempty"`
	Artifacts        []string        `json:"artifacts,omitempty"` // relative to the analysis output dir
	Charts           []string        `json:"charts,omitempty"`    // relative paths under plots/
	BundleName       string          `json:"bundleName,omitempty"`
	Errors           []AnalysisError `json:"errors,omitempty"`
}

// AnalysisError represents an error encountered while processing a dataset.
type AnalysisError struct {
	Stage  string `json:"stage,omitempty"`
	Reason string `json:"reason"`
}

// NewAnalysis creates a new Analysis in pending status.
func NewAnalysis(id, fileID string) *Analysis {
	return &Analysis{
		ID:       id,
		FileID:   fileID,
		Status:   AnalysisStatusPending,
		Progress: 0,
		Errors:   make([]AnalysisError, 0),
	}
}
