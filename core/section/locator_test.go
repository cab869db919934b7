package section

import (
	"errors"
	"slices"
	"testing"

	lwgerrors "github.com/cplusplus/lib-issues-software/core/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input      string
		wantPrefix string
		wantComps  []int
	}{
		{"23", "", []int{23}},
		{"23.3.6", "", []int{23, 3, 6}},
		{"17.5.2.1.4.2", "", []int{17, 5, 2, 1, 4, 2}},
		{"A.1", "", []int{100, 1}},
		{"D.5", "", []int{103, 5}},
		{"T.2", "", []int{119, 2}},
		{"TR1 5.1", "TR1", []int{5, 1}},
		{"TRDecimal 3.2.1", "TRDecimal", []int{3, 2, 1}},
		{"  7.1  ", "", []int{7, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if got.Prefix != tt.wantPrefix {
				t.Errorf("Prefix = %q, want %q", got.Prefix, tt.wantPrefix)
			}
			if !slices.Equal(got.Components, tt.wantComps) {
				t.Errorf("Components = %v, want %v", got.Components, tt.wantComps)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"1..2",
		"1.",
		".1",
		"1.a",
		"TR2 5.1",
		"TR1",
		"1.AB",
		"100",
		"23.x",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", input)
			}
			if !errors.Is(err, lwgerrors.ErrSectionFormat) {
				t.Errorf("Parse(%q) error = %v, want ErrSectionFormat", input, err)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		loc  Locator
		want string
	}{
		{Locator{Components: []int{23, 3, 6}}, "23.3.6"},
		{Locator{Components: []int{100, 1}}, "A.1"},
		{Locator{Prefix: "TR1", Components: []int{5, 1}}, "TR1 5.1"},
		{Sentinel(), "??"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, input := range []string{"1", "23.3.6", "A.1.2", "TR1 5.1", "TRDecimal 3.2", "C.2.9", "99.99"} {
		loc := MustParse(input)
		again, err := Parse(loc.String())
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", loc.String(), err)
		}
		if !again.Equal(loc) {
			t.Errorf("round trip %q: got %v, want %v", input, again, loc)
		}
	}
}

func TestCompare(t *testing.T) {
	ordered := []Locator{
		MustParse("1"),
		MustParse("1.1"),
		MustParse("1.2"),
		MustParse("2"),
		MustParse("10.1"),
		MustParse("A.1"),
		MustParse("D.5"),
		Sentinel(),
		MustParse("TR1 1.1"),
		MustParse("TR1 5"),
		MustParse("TRDecimal 1"),
	}

	for i := range ordered {
		for j := range ordered {
			got := Compare(ordered[i], ordered[j])
			var want int
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			if got != want {
				t.Errorf("Compare(%v, %v) = %d, want %d", ordered[i], ordered[j], got, want)
			}
		}
	}
}

func TestCompareTotalOrder(t *testing.T) {
	locs := []Locator{
		MustParse("3.1"), MustParse("3"), MustParse("B"), MustParse("TR1 3"),
		Sentinel(), MustParse("3.1.1"), MustParse("TRDecimal 2"),
	}
	for _, a := range locs {
		for _, b := range locs {
			n := 0
			if a.Less(b) {
				n++
			}
			if b.Less(a) {
				n++
			}
			if a.Equal(b) {
				n++
			}
			if n != 1 {
				t.Errorf("exactly one of <, >, == must hold for %v and %v", a, b)
			}
			for _, c := range locs {
				if a.Less(b) && b.Less(c) && !a.Less(c) {
					t.Errorf("transitivity broken for %v < %v < %v", a, b, c)
				}
			}
		}
	}
}

func TestSentinelSortsAfterStandardSections(t *testing.T) {
	s := Sentinel()
	for _, input := range []string{"1", "99.99.99", "Z", "Z.99", "A.1", "TR1 5.1", "TRDecimal 3.2"} {
		if !MustParse(input).Less(s) {
			t.Errorf("%q should sort before the sentinel", input)
		}
	}
}

func TestSentinelEqualsItself(t *testing.T) {
	if Compare(Sentinel(), Sentinel()) != 0 {
		t.Error("sentinel should compare equal to itself")
	}
	if !Sentinel().Equal(Sentinel()) {
		t.Error("Equal(Sentinel) = false")
	}
}

func TestMajorSection(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"23.3.6", "23"},
		{"A.1", "A"},
		{"TR1 5.1", "TR1 5"},
	}
	for _, tt := range tests {
		if got := MajorSection(MustParse(tt.input)); got != tt.want {
			t.Errorf("MajorSection(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
	if got := MajorSection(Sentinel()); got != "??" {
		t.Errorf("MajorSection(Sentinel()) = %q, want ??", got)
	}
}

func FuzzParseRoundTrip(f *testing.F) {
	f.Add("23.3.6")
	f.Add("A.1")
	f.Add("TR1 5.1")
	f.Add("TRDecimal 3.2.1")
	f.Add("1..2")
	f.Add("TR")

	f.Fuzz(func(t *testing.T, input string) {
		loc, err := Parse(input)
		if err != nil {
			return
		}
		if len(loc.Components) == 0 {
			t.Fatalf("Parse(%q) returned no components", input)
		}
		again, err := Parse(loc.String())
		if err != nil {
			t.Fatalf("Parse(String()) of %q failed: %v", loc.String(), err)
		}
		if !again.Equal(loc) {
			t.Fatalf("round trip of %q: got %v, want %v", input, again, loc)
		}
	})
}
