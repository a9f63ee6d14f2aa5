package schedule

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2025, time.June, 2, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{
			name: "identical intervals",
			a:    Interval{at(9, 0), at(9, 30)},
			b:    Interval{at(9, 0), at(9, 30)},
			want: true,
		},
		{
			name: "back to back is not overlap",
			a:    Interval{at(9, 0), at(9, 30)},
			b:    Interval{at(9, 30), at(10, 0)},
			want: false,
		},
		{
			name: "back to back reversed",
			a:    Interval{at(9, 30), at(10, 0)},
			b:    Interval{at(9, 0), at(9, 30)},
			want: false,
		},
		{
			name: "partial overlap at start",
			a:    Interval{at(9, 15), at(9, 45)},
			b:    Interval{at(9, 0), at(9, 30)},
			want: true,
		},
		{
			name: "partial overlap at end",
			a:    Interval{at(8, 45), at(9, 15)},
			b:    Interval{at(9, 0), at(9, 30)},
			want: true,
		},
		{
			name: "containment",
			a:    Interval{at(9, 0), at(10, 0)},
			b:    Interval{at(9, 15), at(9, 45)},
			want: true,
		},
		{
			name: "disjoint",
			a:    Interval{at(9, 0), at(9, 30)},
			b:    Interval{at(11, 0), at(11, 30)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}
