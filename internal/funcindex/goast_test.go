package funcindex

import (
	"context"
	"testing"
)

// line numbers matter here: target spans lines 3-10, the literal 12-14
const goSample = `package sample

func target() {
	a := 1
	b := 2
	_ = a + b
	if a > b {
		return
	}
}

var handler = func() {
	println("anonymous")
}

type Store struct{}

func (s *Store) Save() error {
	run := func() {
		println("closure")
	}
	run()
	return nil
}
`

func analyzeGo(t *testing.T, source string) Index {
	t.Helper()
	spans, err := NewGoAnalyzer().Analyze(context.Background(), "sample.go", []byte(source))
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	return NewSpanIndex(spans)
}

func TestGoAnalyzer_Attribution(t *testing.T) {
	idx := analyzeGo(t, goSample)

	tests := []struct {
		name     string
		line     int
		wantName string
		wantOK   bool
	}{
		{"package clause", 1, "", false},
		{"function start", 3, "target", true},
		{"function body", 5, "target", true},
		{"function end", 10, "target", true},
		{"anonymous start", 12, "", false},
		{"anonymous body", 13, "", false},
		{"anonymous end", 14, "", false},
		{"type decl", 16, "", false},
		{"method", 18, "Store.Save", true},
		{"closure inside method", 20, "", false},
		{"method after closure", 22, "Store.Save", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := idx.FunctionAt(tt.line)
			if name != tt.wantName || ok != tt.wantOK {
				t.Errorf("FunctionAt(%d) = (%q, %v), want (%q, %v)", tt.line, name, ok, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestGoAnalyzer_GenericReceiver(t *testing.T) {
	idx := analyzeGo(t, `package sample

type Pair[K comparable, V any] struct{}

func (p Pair[K, V]) Key() K {
	var k K
	return k
}
`)

	if name, ok := idx.FunctionAt(6); !ok || name != "Pair.Key" {
		t.Errorf("FunctionAt(6) = (%q, %v), want Pair.Key", name, ok)
	}
}

func TestGoAnalyzer_ParseError(t *testing.T) {
	_, err := NewGoAnalyzer().Analyze(context.Background(), "broken.go", []byte("package x\nfunc {"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}
