package model

import "fmt"

// DocumentKind identifies which of the four circulating collections a
// document belongs to. Every loan, reservation and consultation references a
// document by the composite (id, kind) key.
type DocumentKind string

const (
	KindBook        DocumentKind = "book"
	KindThesis      DocumentKind = "thesis"
	KindMemoir      DocumentKind = "memoir"
	KindStageReport DocumentKind = "stage_report"
)

// Kinds lists every valid document kind.
var Kinds = []DocumentKind{KindBook, KindThesis, KindMemoir, KindStageReport}

// ParseKind validates a raw kind string.
func ParseKind(s string) (DocumentKind, error) {
	k := DocumentKind(s)
	switch k {
	case KindBook, KindThesis, KindMemoir, KindStageReport:
		return k, nil
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}

func (k DocumentKind) String() string { return string(k) }
