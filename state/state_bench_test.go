package state

import (
	"fmt"
	"testing"
)

func BenchmarkFileTracker_Record(b *testing.B) {
	tracker, err := NewFileTracker(b.TempDir(), true)
	if err != nil {
		b.Fatal(err)
	}
	defer tracker.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := tracker.Record(fmt.Sprintf("hash-%d", i), fmt.Sprintf("msg-%d", i)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFileTracker_Seen(b *testing.B) {
	tracker, err := NewFileTracker(b.TempDir(), false)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		_ = tracker.Record(fmt.Sprintf("hash-%d", i), fmt.Sprintf("msg-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tracker.Seen(fmt.Sprintf("hash-%d", i%2000))
	}
}
