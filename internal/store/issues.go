package store

import "go.uber.org/zap"

// Column layout of the issues table. The issue UUID is the dedup key and
// the publication ISSN column doubles as the resume checkpoint.
var issueColumns = []string{
	"publication_issn",
	"issue_uuid",
	"issue_name",
	"date",
	"number",
	"number_of_pages",
	"issue_link",
}

const (
	issueKeyColumn        = "issue_uuid"
	issueCheckpointColumn = "publication_issn"
)

// Issue is one collected issue row.
type Issue struct {
	PublicationISSN string
	UUID            string
	Name            string
	Date            string
	Number          string
	Pages           string
	Link            string
}

// Record converts the issue into a CSV row.
func (i Issue) Record() Record {
	return Record{
		"publication_issn": i.PublicationISSN,
		"issue_uuid":       i.UUID,
		"issue_name":       i.Name,
		"date":             i.Date,
		"number":           i.Number,
		"number_of_pages":  i.Pages,
		"issue_link":       i.Link,
	}
}

// NewIssueStore opens the issues success (or failures) table at path.
func NewIssueStore(path string, logger *zap.Logger) *RecordStore {
	return NewRecordStore(path, issueColumns, issueKeyColumn, issueCheckpointColumn, logger)
}
