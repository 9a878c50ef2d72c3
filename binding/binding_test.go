package binding

import "testing"

func TestInterpolatePageScope(t *testing.T) {
	scope := PageScope(2, 5, map[string]any{
		"title": "Worksheet",
		"tags":  []any{"math", "grade 3"},
		"page":  "shadowed",
		"meta":  map[string]string{"author": "li"},
	})
	cases := map[string]string{
		"Page ${page.number} / ${page.count}": "Page 2 / 5",
		"${title} by ${meta.author}":          "Worksheet by li",
		"${tags[1]}":                          "grade 3",
		"${missing.key} stays":                "${missing.key} stays",
		"${ }":                                "${ }",
	}
	for in, want := range cases {
		if got := Interpolate(in, scope); got != want {
			t.Fatalf("Interpolate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInterpolateNilData(t *testing.T) {
	if got := Interpolate("${page.number}", nil); got != "${page.number}" {
		t.Fatalf("nil data should leave text untouched, got %q", got)
	}
	if !HasPlaceholders("a ${b}") || HasPlaceholders("plain") {
		t.Fatalf("HasPlaceholders mismatch")
	}
}

func TestInterpolateNestedIndexes(t *testing.T) {
	data := map[string]any{
		"grid": []any{[]any{"a", "b"}, []string{"c", "d"}},
	}
	cases := map[string]string{
		"${grid[0][1]}": "b",
		"${grid[1][0]}": "c",
		"${grid[2][0]}": "${grid[2][0]}",
		"${grid[x]}":    "${grid[x]}",
		"${grid[-1]}":   "${grid[-1]}",
		"${grid[0}":     "${grid[0}",
	}
	for in, want := range cases {
		if got := Interpolate(in, data); got != want {
			t.Fatalf("Interpolate(%q) = %q, want %q", in, got, want)
		}
	}
}
