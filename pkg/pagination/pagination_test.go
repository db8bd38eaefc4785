package pagination

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   Params
		want Params
	}{
		{Params{}, Params{Page: 1, Limit: DefaultLimit}},
		{Params{Page: 3, Limit: 500}, Params{Page: 3, Limit: MaxLimit}},
		{Params{Page: -2, Limit: 5}, Params{Page: 1, Limit: 5}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(DefaultLimit); got != tc.want {
			t.Fatalf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestOffsetAndMeta(t *testing.T) {
	p := Params{Page: 2, Limit: 10}
	if p.Offset() != 10 {
		t.Fatalf("expected offset 10, got %d", p.Offset())
	}
	meta := BuildMeta(p, 25)
	if meta.TotalPages != 3 || !meta.HasMore {
		t.Fatalf("unexpected meta %+v", meta)
	}
	last := BuildMeta(Params{Page: 3, Limit: 10}, 25)
	if last.HasMore {
		t.Fatalf("last page should not report more")
	}
	if empty := BuildMeta(p, 0); empty.TotalPages != 0 || empty.HasMore {
		t.Fatalf("unexpected empty meta %+v", empty)
	}
}

func TestParseInt(t *testing.T) {
	if v, ok := ParseInt("4"); !ok || v != 4 {
		t.Fatalf("expected 4, got %d %v", v, ok)
	}
	for _, raw := range []string{"", "x", "-1"} {
		if _, ok := ParseInt(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
