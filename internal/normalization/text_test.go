package normalization

import "testing"

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"html and case", "<p>Stocks <b>RALLY</b></p>", "stocks rally"},
		{"urls", "read https://example.com/x?y=1 and www.foo.com now", "read and now"},
		{"truncation marker", "Markets slid on Friday… [+4561 chars]", "markets slid on friday"},
		{"punctuation", "Fed: rates up 0.25%! Why?", "fed rates up 0.25! why?"},
		{"whitespace", "  a \n\t b  ", "a b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.in); got != tc.want {
				t.Fatalf("CleanText(%q)=%q want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestOrDefault(t *testing.T) {
	blank := "  "
	val := "Jo"
	if got := OrDefault(nil, "No Author"); got != "No Author" {
		t.Fatalf("nil: %q", got)
	}
	if got := OrDefault(&blank, "No Author"); got != "No Author" {
		t.Fatalf("blank: %q", got)
	}
	if got := OrDefault(&val, "No Author"); got != "Jo" {
		t.Fatalf("value: %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	desc := "description"
	title := "title"
	if got := FirstNonEmpty(nil, &desc, &title); got != "description" {
		t.Fatalf("got %q", got)
	}
	if got := FirstNonEmpty(nil, nil); got != "" {
		t.Fatalf("got %q", got)
	}
}
