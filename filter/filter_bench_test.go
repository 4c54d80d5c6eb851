package filter

import (
	"strings"
	"testing"
)

var (
	benchHeader = []byte("From: Jane <jane@example.com>\nTo: team@example.com\nSubject: Re: Quarterly report\n")
	benchBody   = []byte(strings.Repeat("Numbers attached, see the summary below.\n", 40) +
		"\nOn Mon, Jan 4, 2021 at 9:00 AM, Bob <bob@example.com> wrote:\n> can you send the report?\n")
)

func benchmarkAllows(b *testing.B, opts Options) {
	f, err := New(opts)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Allows(benchHeader, benchBody)
	}
}

func BenchmarkFilter_Allows_NoFilters(b *testing.B) {
	benchmarkAllows(b, Options{})
}

func BenchmarkFilter_Allows_IncludeReplies(b *testing.B) {
	benchmarkAllows(b, Options{IncludeHeader: []string{`Subject: (?i)re:`}})
}

func BenchmarkFilter_Allows_ExcludeLists(b *testing.B) {
	benchmarkAllows(b, Options{
		ExcludeHeader: []string{`List-Id:`, `Precedence: bulk`, `From:.*noreply`},
	})
}

func BenchmarkFilter_Allows_BodyQuoteMarker(b *testing.B) {
	benchmarkAllows(b, Options{IncludeBody: []string{`On .* wrote:`}})
}

func BenchmarkSplitRawMessage(b *testing.B) {
	raw := append(append([]byte{}, benchHeader...), append([]byte("\n"), benchBody...)...)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SplitRawMessage(raw)
	}
}
