package medrag

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

type QueryID struct{ uuid.UUID }

func NewQueryID() QueryID {
	return QueryID{uuid.Must(uuid.NewV4())}
}

// QueryRecord is one entry in the query audit log: the question asked, the
// answer given and the outcome flags, kept around for error analysis.
type QueryRecord struct {
	ID               QueryID
	Question         string
	Method           RetrievalMethod
	Answer           string
	Success          bool
	ValidationPassed bool
	LowConfidence    bool
	Blocked          bool
	Attempts         int
	Created          time.Time
}

type QueryRecordFilter struct {
	Method  RetrievalMethod
	Blocked *bool
}

var (
	queryRecordsSortableBy  = []string{`"created"`, `"method"`}
	queryRecordsDefaultSort = SortParams{By: `"created"`, Order: SortOrderDesc, Limit: 50}
)

func (m *medRAG) ListQueryRecords(ctx context.Context, filter QueryRecordFilter, params SortParams) ([]*QueryRecord, error) {
	if m.store == nil {
		return nil, nil
	}

	if !params.Valid(queryRecordsSortableBy) {
		return nil, ErrInvalidSortParams
	}

	return m.store.ListQueryRecords(ctx, filter, params.OrDefault(queryRecordsDefaultSort))
}
