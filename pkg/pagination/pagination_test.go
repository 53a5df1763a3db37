package pagination

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   Params
		want Params
	}{
		{"defaults", Params{}, Params{PageNumber: 1, PageSize: 4}},
		{"clamps size", Params{PageNumber: 2, PageSize: 500}, Params{PageNumber: 2, PageSize: 100}},
		{"keeps valid", Params{PageNumber: 3, PageSize: 10}, Params{PageNumber: 3, PageSize: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.in.Normalize(Limits{}); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}

	custom := Params{}.Normalize(Limits{DefaultSize: 20, MaxSize: 50})
	if custom.PageSize != 20 {
		t.Fatalf("expected custom default size, got %d", custom.PageSize)
	}
}

func TestOffsetAndPageCount(t *testing.T) {
	p := Params{PageNumber: 3, PageSize: 4}
	if p.Offset() != 8 {
		t.Fatalf("expected offset 8, got %d", p.Offset())
	}
	if PageCount(9, 4) != 3 {
		t.Fatalf("expected 3 pages, got %d", PageCount(9, 4))
	}
	if PageCount(0, 4) != 0 {
		t.Fatal("expected zero pages for empty result")
	}
}

func TestParseInt(t *testing.T) {
	if ParseInt(" 7 ") != 7 {
		t.Fatal("expected 7")
	}
	if ParseInt("abc") != 0 || ParseInt("-2") != 0 {
		t.Fatal("expected invalid input to parse as 0")
	}
}
