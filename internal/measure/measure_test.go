package measure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartStopsOnStop(t *testing.T) {
	done := make(chan struct{})
	go func() {
		Start(nil)
		close(done)
	}()

	// let Start install the stop channel before closing it
	time.Sleep(50 * time.Millisecond)
	Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestSplitTargets(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "example.com", []string{"example.com"}},
		{"multiple", "a.example,b.example", []string{"a.example", "b.example"}},
		{"whitespace and blanks", " a.example , ,b.example,", []string{"a.example", "b.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitTargets(tt.raw))
		})
	}
}
