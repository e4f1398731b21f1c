package chunk

import "testing"

func TestWindowsCoverEveryItem(t *testing.T) {
	const n = 5000
	windows := Windows(n, 1500, 200)
	if len(windows) == 0 {
		t.Fatal("expected windows to be generated")
	}

	covered := make([]bool, n)
	for _, w := range windows {
		if w.Start < 0 || w.End > n || w.Start >= w.End {
			t.Fatalf("invalid window bounds: %+v", w)
		}
		if w.Len() != 1500 {
			t.Fatalf("expected full windows, got %+v", w)
		}
		for i := w.Start; i < w.End; i++ {
			covered[i] = true
		}
	}

	for i, ok := range covered {
		if !ok {
			t.Fatalf("data loss at index %d", i)
		}
	}
}

func TestStrideAlignsTail(t *testing.T) {
	got := Stride(10, 8, 4)
	want := []Window{{Index: 0, Start: 0, End: 8}, {Index: 1, Start: 2, End: 10}}
	if len(got) != len(want) {
		t.Fatalf("expected %d windows, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("window %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestWindowsShortInput(t *testing.T) {
	got := Windows(3, 8, 4)
	if len(got) != 1 || got[0].Start != 0 || got[0].End != 3 {
		t.Fatalf("expected one short window, got %+v", got)
	}
	if Windows(0, 8, 4) != nil {
		t.Fatal("expected no windows for empty input")
	}
}
