package core

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestSyncBuffer_ConcurrentWrites(t *testing.T) {
	var b SyncBuffer
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fmt.Fprintf(&b, "line %d\n", i)
			_ = b.String()
		}(i)
	}
	wg.Wait()

	if got := len(b.Lines()); got != 20 {
		t.Errorf("Lines() returned %d lines, want 20", got)
	}
}

func TestSyncBuffer_LinesKeepsLastRedraw(t *testing.T) {
	var b SyncBuffer
	b.Write([]byte("\rBatch 1/3\rBatch 2/3\n\n  Simulation Stopped  \n"))

	want := []string{"Batch 2/3", "Simulation Stopped"}
	if got := b.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}
