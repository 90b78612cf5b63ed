package tagging

// Paper is one row of the input dataset. Journal and Abstract are nil when the
// cell is empty; Year is the raw cell text.
type Paper struct {
	Title    string
	Year     string
	Journal  *string
	Abstract *string
}

// ClassificationResult is the resolved value of one tag for one paper.
// An empty Value means no category applied or classification failed.
type ClassificationResult struct {
	Tag   string
	Value string
}
