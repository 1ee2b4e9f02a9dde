package build

import "testing"

func TestVersionCmp(t *testing.T) {
	versionTests := []struct {
		a, b ProtocolVersion
		exp  int
	}{
		{NewVersion(0, 1, 0), NewVersion(0, 0, 9), 1},
		{NewVersion(0, 1, 0), NewVersion(0, 1, 0), 0},
		{NewVersion(0, 1, 0), NewVersion(0, 1, 1), -1},
		{NewVersion(0, 1, 0), NewVersion(1, 1, 0), -1},
		{NewPrereleaseVersion(0, 1, 1, "0"), NewVersion(0, 1, 1), -1},
		{NewVersion(1, 2, 3), NewPrereleaseVersion(1, 2, 3, "0"), 1},
		{NewPrereleaseVersion(1, 2, 3, "foo"), NewPrereleaseVersion(1, 2, 3, "bar"), 0},
	}

	for _, test := range versionTests {
		if actual := test.a.Compare(test.b); actual != test.exp {
			t.Errorf("Comparing %s to %s should return %v (got %v)",
				test.a.String(), test.b.String(), test.exp, actual)
		}
	}
}

func TestVersionStringReflection(t *testing.T) {
	testCases := []struct {
		in, out string
	}{
		{"1", "1.0.0"},
		{"1.1", "1.1.0"},
		{"1.1.1", "1.1.1"},
		{"1.1.1-1", "1.1.1-1"},
		{"1.2.3-alpha", "1.2.3-alpha"},
		{"0.1", "0.1.0"},
		{"0.0.1", "0.0.1"},
	}

	for index, testCase := range testCases {
		version, err := Parse(testCase.in)
		if err != nil {
			t.Errorf("test %d failed: %v", index, err)
			continue
		}
		if out := version.String(); out != testCase.out {
			t.Errorf("test %d failed: expected %q, got %q", index, testCase.out, out)
		}
	}
}

func TestVersionJSONReflection(t *testing.T) {
	testCases := []ProtocolVersion{
		NewVersion(0, 0, 0),
		NewVersion(1, 2, 3),
		NewPrereleaseVersion(1, 2, 3, "4"),
	}
	for index, in := range testCases {
		b, err := in.MarshalJSON()
		if err != nil {
			t.Errorf("test %d failed: MarshalJSON: %v", index, err)
			continue
		}
		var out ProtocolVersion
		if err := out.UnmarshalJSON(b); err != nil {
			t.Errorf("test %d failed: UnmarshalJSON: %v", index, err)
			continue
		}
		if in.String() != out.String() {
			t.Errorf("test %d failed: expected %q, got %q", index, in, out)
		}
	}
}

func TestInvalidStringVersionRange(t *testing.T) {
	cases := []string{"256", "1.256", "1.1.256", "256.256.256"}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Fatalf("expected %q to be out of range", c)
		}
	}
}
