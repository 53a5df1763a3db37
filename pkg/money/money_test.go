package money

import "testing"

func TestFormat(t *testing.T) {
	cases := map[int64]string{
		0:       "0.00",
		5:       "0.05",
		1250:    "12.50",
		1000000: "10000.00",
	}
	for in, want := range cases {
		if got := Format(in); got != want {
			t.Fatalf("Format(%d) = %q, want %q", in, got, want)
		}
	}
	if FormatPtr(nil) != nil {
		t.Fatal("expected nil for nil amount")
	}
	amount := int64(99)
	if got := FormatPtr(&amount); got == nil || *got != "0.99" {
		t.Fatalf("unexpected formatted pointer %v", got)
	}
}
