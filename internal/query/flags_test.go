package query

import (
	"encoding/json"
	"testing"

	"pgregory.net/rapid"

	"amplecache/internal/attrs"
)

func flagDoc(t *rapid.T, flags *string) string {
	if flags == nil {
		return `{"createdAt":1}`
	}
	raw, err := json.Marshal(map[string]string{"flags": *flags})
	if err != nil {
		t.Fatalf("marshal flags: %v", err)
	}
	return string(raw)
}

func TestFlagPredicatesAgreeWithDecoder(t *testing.T) {
	db := openMemDB(t)
	letters := rapid.SliceOfNDistinct(rapid.SampledFrom([]rune{'I', 'U', 'D'}), 0, 3, func(r rune) rune { return r })

	rapid.Check(t, func(rt *rapid.T) {
		var flags *string
		if rapid.Bool().Draw(rt, "present") {
			s := string(letters.Draw(rt, "letters"))
			flags = &s
		}
		doc := flagDoc(rt, flags)
		decoded, _ := attrs.Decode([]byte(doc))

		for _, mode := range attrs.FlagModes {
			frag, err := flagModePredicate(mode)
			if err != nil {
				rt.Fatalf("mode %s: %v", mode, err)
			}
			got := evalOnAttrs(t, db, doc, frag)
			if want := decoded.FlagSet().Match(mode); got != want {
				rt.Fatalf("mode %s on %s: sql=%v go=%v", mode, doc, got, want)
			}
		}

		required := string(letters.Draw(rt, "required"))
		if required == "" {
			return
		}
		got := evalOnAttrs(t, db, doc, requiredFlagsPredicate(required))
		if want := decoded.FlagSet().ContainsAll(required); got != want {
			rt.Fatalf("required %q on %s: sql=%v go=%v", required, doc, got, want)
		}
	})
}

func TestRequiredFlagsIgnoreOrderAndExtras(t *testing.T) {
	db := openMemDB(t)
	frag := requiredFlagsPredicate("IU")
	for doc, want := range map[string]bool{
		`{"flags":"UI"}`:  true,
		`{"flags":"DIU"}`: true,
		`{"flags":"I"}`:   false,
		`{}`:              false,
	} {
		if got := evalOnAttrs(t, db, doc, frag); got != want {
			t.Fatalf("%s: expected %v, got %v", doc, want, got)
		}
	}
}

func TestRequiredFlagsBindLetters(t *testing.T) {
	frag := requiredFlagsPredicate("IUI")
	if len(frag.Args) != 2 {
		t.Fatalf("expected duplicate letters collapsed to 2 args, got %v", frag.Args)
	}
}

func TestUnknownFlagModeIsUsageError(t *testing.T) {
	if _, err := flagModePredicate("sometimes"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
