package monitor

import "testing"

func TestResolveMargin_PercentBounds(t *testing.T) {
	margin := ResolveMargin(0, 20)
	if got := margin.Lower(11.2); !almostEqual(got, 8.96) {
		t.Fatalf("expected lower 8.96, got %v", got)
	}
	if got := margin.Upper(11.2); !almostEqual(got, 13.44) {
		t.Fatalf("expected upper 13.44, got %v", got)
	}
}

func TestResolveMargin_MinutesTakePrecedence(t *testing.T) {
	margin := ResolveMargin(3, 20)
	if got := margin.Lower(10); !almostEqual(got, 7) {
		t.Fatalf("expected lower 7, got %v", got)
	}
	if got := margin.Upper(10); !almostEqual(got, 13) {
		t.Fatalf("expected upper 13, got %v", got)
	}
}

func TestMargin_AbsoluteLowerClampsAtZero(t *testing.T) {
	margin := ResolveMargin(5, 0)
	if got := margin.Lower(3); got != 0 {
		t.Fatalf("expected lower clamp at 0, got %v", got)
	}
}

func TestResolveMargin_ZeroMargin(t *testing.T) {
	margin := ResolveMargin(0, 0)
	if got := margin.Lower(10); !almostEqual(got, 10) {
		t.Fatalf("zero margin lower must equal the value, got %v", got)
	}
	if got := margin.Upper(10); !almostEqual(got, 10) {
		t.Fatalf("zero margin upper must equal the value, got %v", got)
	}
}
