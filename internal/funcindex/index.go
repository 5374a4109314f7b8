package funcindex

import "sort"

// Index maps a physical line to the innermost named function enclosing it.
type Index interface {
	// FunctionAt returns the enclosing function's name, or false when the
	// line is outside any function or its innermost function is anonymous.
	FunctionAt(line int) (string, bool)
}

// Empty is the index of a file with no functions. Files that cannot be
// analyzed degrade to it.
var Empty Index = emptyIndex{}

type emptyIndex struct{}

func (emptyIndex) FunctionAt(int) (string, bool) { return "", false }

// SpanIndex is an Index over precomputed function spans.
type SpanIndex struct {
	spans []Span
}

// NewSpanIndex builds an index from spans in any order.
func NewSpanIndex(spans []Span) *SpanIndex {
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartLine != sorted[j].StartLine {
			return sorted[i].StartLine < sorted[j].StartLine
		}
		return sorted[i].EndLine > sorted[j].EndLine
	})
	return &SpanIndex{spans: sorted}
}

// FunctionAt implements Index. Among spans containing line the one starting
// last wins, which for properly nested functions is the innermost.
func (x *SpanIndex) FunctionAt(line int) (string, bool) {
	// spans are ordered by start, so only those before upper can contain line
	upper := sort.Search(len(x.spans), func(i int) bool {
		return x.spans[i].StartLine > line
	})

	for i := upper - 1; i >= 0; i-- {
		s := x.spans[i]
		if !s.contains(line) {
			continue
		}
		if s.Anonymous || s.Name == "" {
			return "", false
		}
		return s.Name, true
	}
	return "", false
}
