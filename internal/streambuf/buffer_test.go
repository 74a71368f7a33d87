package streambuf

import "testing"

func TestViewSuspendsUntilEnoughData(t *testing.T) {
	b := New()
	b.Append([]byte{1, 2, 3})

	if _, ok := b.View(0, 3); ok {
		t.Fatalf("expected suspension with exactly minBytes available")
	}

	b.Append([]byte{4})
	view, ok := b.View(0, 3)
	if !ok {
		t.Fatalf("expected view to be available after append")
	}
	if len(view) != 4 {
		t.Fatalf("expected view of length 4, got %d", len(view))
	}
}

func TestViewFlushingReturnsShortPrefix(t *testing.T) {
	b := New()
	b.Append([]byte{1, 2})
	b.SetFlushing()

	view, ok := b.View(0, 10)
	if !ok {
		t.Fatalf("expected flushing view to succeed")
	}
	if len(view) != 2 {
		t.Fatalf("expected short prefix of length 2, got %d", len(view))
	}
}

func TestAdvanceInvalidatesPrefix(t *testing.T) {
	b := New()
	b.Append([]byte{1, 2, 3, 4, 5})
	b.Advance(2)

	if b.Pos() != 2 {
		t.Fatalf("expected pos 2, got %d", b.Pos())
	}
	view, ok := b.View(0, 0)
	if !ok || len(view) != 3 || view[0] != 3 {
		t.Fatalf("expected remaining view [3 4 5], got %v ok=%v", view, ok)
	}
}
