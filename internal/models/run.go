package models

import "time"

// Run statuses, in the order a run moves through them.
const (
	StatusValidating  = "VALIDATING"
	StatusClassifying = "CLASSIFYING"
	StatusWriting     = "WRITING"
	StatusCompleted   = "COMPLETED"
	StatusFailed      = "FAILED"
)

// Run is the Firestore record of one tagging run. It tracks status and
// progress only; classifications are never read back from it.
type Run struct {
	InputGCSUri         string    `firestore:"inputGcsUri,omitempty"`
	Objective           string    `firestore:"objective,omitempty"`
	Tags                []string  `firestore:"tags,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	PaperCount          int       `firestore:"paperCount,omitempty"`
	Progress            float64   `firestore:"progress"`
	Failures            int       `firestore:"failures"`
	UnknownYears        int       `firestore:"unknownYears"`
	ExcelGCSUri         string    `firestore:"excelGcsUri,omitempty"`
	CorpusGCSUri        string    `firestore:"corpusGcsUri,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}
