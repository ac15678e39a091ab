package medrag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrInvalidSortParams = errors.New("invalid sort params")

type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// SortParams controls ordering and page size when listing audit records.
// The zero value means "caller has no preference"; OrDefault substitutes
// the listing's default in that case.
type SortParams struct {
	Limit int
	By    string
	Order SortOrder
}

func (p SortParams) Empty() bool {
	return p.Limit == 0 && p.By == "" && p.Order == ""
}

func (p SortParams) Valid(sortableBy []string) bool {
	if p.Limit < 0 {
		return false
	}
	if p.By != "" && !slices.Contains(sortableBy, p.By) {
		return false
	}
	return true
}

func (p SortParams) OrDefault(def SortParams) SortParams {
	if p.Empty() {
		return def
	}
	return p
}

func (p SortParams) SQL() string {
	var s string

	if p.By != "" {
		s += fmt.Sprintf(" order by %s", p.By)
		if p.Order != "" {
			s += fmt.Sprintf(" %s", strings.ToLower(string(p.Order)))
		}
	}

	if p.Limit > 0 {
		s += fmt.Sprintf(" limit %d", p.Limit)
	}

	return s
}
