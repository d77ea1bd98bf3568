package attrs

import (
	"testing"

	"pgregory.net/rapid"
)

func TestDerivedFlagBooleans(t *testing.T) {
	cases := []struct {
		raw       string
		urgent    bool
		important bool
	}{
		{`{"flags":"IU"}`, true, true},
		{`{"flags":"UI"}`, true, true},
		{`{"flags":""}`, false, false},
		{`{}`, false, false},
		{`{"flags":"D"}`, false, false},
		{`{"flags":"DU"}`, true, false},
	}
	for _, tc := range cases {
		a, _ := Decode([]byte(tc.raw))
		f := a.FlagSet()
		if f.Urgent() != tc.urgent || f.Important() != tc.important {
			t.Fatalf("%s: urgent=%v important=%v", tc.raw, f.Urgent(), f.Important())
		}
	}
}

func TestContainsAllIsOrderIndependent(t *testing.T) {
	if !Flags("UDI").ContainsAll("IU") {
		t.Fatalf("expected UDI to contain IU")
	}
	if Flags("U").ContainsAll("IU") {
		t.Fatalf("expected U not to contain IU")
	}
	if !Flags("").ContainsAll("") {
		t.Fatalf("expected empty set to contain empty set")
	}
}

func TestParseFlagMode(t *testing.T) {
	if m, err := ParseFlagMode(" Both "); err != nil || m != FlagModeBoth {
		t.Fatalf("ParseFlagMode = %q, %v", m, err)
	}
	if _, err := ParseFlagMode("sometimes"); err == nil {
		t.Fatalf("expected unknown mode to fail")
	}
}

func drawFlags(t *rapid.T) Flags {
	letters := rapid.SliceOfNDistinct(rapid.SampledFrom([]rune{'I', 'U', 'D'}), 0, 3, func(r rune) rune { return r }).Draw(t, "letters")
	return Flags(string(letters))
}

func TestFlagModeAlgebra(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := drawFlags(t)
		if f.Match(FlagModeBoth) && !f.Match(FlagModeAny) {
			t.Fatalf("both must imply any for %q", f)
		}
		if f.Match(FlagModeUrgent) && f.Match(FlagModeImportant) {
			t.Fatalf("urgent and important are disjoint, %q matched both", f)
		}
		if f.Match(FlagModeNone) == f.Match(FlagModeAny) {
			t.Fatalf("none must be the complement of any for %q", f)
		}
		exactlyOne := 0
		for _, m := range []FlagMode{FlagModeUrgent, FlagModeImportant, FlagModeBoth, FlagModeNone} {
			if f.Match(m) {
				exactlyOne++
			}
		}
		if exactlyOne != 1 {
			t.Fatalf("urgent/important/both/none must partition, %q matched %d", f, exactlyOne)
		}
	})
}
