package element

import (
	"slices"
	"testing"
)

func TestLedger_DefinitionWait(t *testing.T) {
	tests := []struct {
		name         string
		lossy        bool
		want         []int
		wantReplaced bool
	}{
		{name: "multi-waiter keeps arrival order", lossy: false, want: []int{1, 2, 3}},
		{name: "lossy keeps only the last waiter", lossy: true, want: []int{3}, wantReplaced: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger[int](tt.lossy)
			var replaced bool
			for _, w := range []int{1, 2, 3} {
				if l.AwaitDefinition("x-a", w) {
					replaced = true
				}
			}
			if replaced != tt.wantReplaced {
				t.Errorf("replaced = %v, want %v", replaced, tt.wantReplaced)
			}
			if got := l.ResolveDefinition("x-a"); !slices.Equal(got, tt.want) {
				t.Errorf("ResolveDefinition = %v, want %v", got, tt.want)
			}
			if got := l.ResolveDefinition("x-a"); len(got) != 0 {
				t.Errorf("second ResolveDefinition = %v, want empty", got)
			}
		})
	}
}

func TestLedger_SupertypeWait(t *testing.T) {
	l := NewLedger[string](true)
	l.AwaitSupertype("x-base", "x-b")
	l.AwaitSupertype("x-base", "x-c")

	if got := l.SupertypeWaits(); !slices.Equal(got, []string{"x-base"}) {
		t.Errorf("SupertypeWaits = %v", got)
	}
	if got := l.ResolveSupertype("x-base"); !slices.Equal(got, []string{"x-b", "x-c"}) {
		t.Errorf("ResolveSupertype = %v", got)
	}
	if got := l.ResolveSupertype("x-base"); got != nil {
		t.Errorf("second ResolveSupertype = %v, want nil", got)
	}
}

func TestLedger_Waiters(t *testing.T) {
	l := NewLedger[string](false)
	l.AwaitDefinition("x-a", "d1")
	l.AwaitSupertype("x-a", "s1")
	l.AwaitDefinition("x-b", "d2")

	if got := l.Waiters("x-a"); !slices.Equal(got, []string{"d1", "s1"}) {
		t.Errorf("Waiters = %v", got)
	}
	if got := l.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
	if got := l.DefinitionWaits(); !slices.Equal(got, []string{"x-a", "x-b"}) {
		t.Errorf("DefinitionWaits = %v", got)
	}
}
