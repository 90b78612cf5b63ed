package models

import "github.com/Lllllllleong/iramuteqtagger/internal/tagging"

// These structs define the JSON payloads for HTTP requests and responses
// of the tagging function and the downstream workflow hand-off.

// TagRequest is the input for the tag-abstracts function.
type TagRequest struct {
	InputGCSUri string                  `json:"inputGcsUri"`
	Objective   string                  `json:"objective"`
	Tags        []tagging.TagDefinition `json:"tags"`
}

// TagResponse is the output of the tag-abstracts function.
type TagResponse struct {
	Status       string `json:"status"`
	RunID        string `json:"runId"`
	PaperCount   int    `json:"paperCount"`
	Failures     int    `json:"failures"`
	ExcelGCSUri  string `json:"excelGcsUri"`
	CorpusGCSUri string `json:"corpusGcsUri"`
}

// WorkflowArgument is passed to the downstream workflow after a run completes.
type WorkflowArgument struct {
	RunID        string `json:"runId"`
	ExcelGCSUri  string `json:"excelGcsUri"`
	CorpusGCSUri string `json:"corpusGcsUri"`
}
