package dataset

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/iramuteqtagger/internal/tagging"
)

// CorpusDelimiter separates records in the Iramuteq text corpus.
const CorpusDelimiter = "****"

// FormatCorpus renders one record per paper, heading line then abstract,
// framed and separated by delimiter lines.
func FormatCorpus(headings, abstracts []string) (string, error) {
	if len(headings) != len(abstracts) {
		return "", fmt.Errorf("%w: %d headings for %d abstracts", tagging.ErrOutputGeneration, len(headings), len(abstracts))
	}
	records := make([]string, len(headings))
	for i := range headings {
		records[i] = headings[i] + "\n" + abstracts[i]
	}
	sep := "\n" + CorpusDelimiter + "\n"
	return CorpusDelimiter + "\n" + strings.Join(records, sep) + "\n" + CorpusDelimiter, nil
}
