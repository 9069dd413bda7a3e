package domprint

import "testing"

func TestFingerprint_SameSkeletonDifferentCopy(t *testing.T) {
	a := `<html><head><title>Alpha</title></head><body><div><h1>One</h1><p>First</p></div></body></html>`
	b := `<html><head><title>Beta</title></head><body><div><h1>Two</h1><p>Second</p></div></body></html>`

	if Fingerprint(a) != Fingerprint(b) {
		t.Errorf("same skeleton fingerprints differ, distance %d",
			Distance(Fingerprint(a), Fingerprint(b)))
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	markup := `<html><body><nav><a>x</a><a>y</a></nav><main><p>z</p></main></body></html>`
	if Fingerprint(markup) != Fingerprint(markup) {
		t.Error("fingerprint is not deterministic")
	}
}

func TestFingerprint_EmptyAndTextOnly(t *testing.T) {
	if fp := Fingerprint(""); fp != 0 {
		t.Errorf("empty markup fingerprint = %064b, want 0", fp)
	}
	if fp := Fingerprint("no tags here at all"); fp != 0 {
		t.Errorf("tagless markup fingerprint = %064b, want 0", fp)
	}
}

func TestFingerprint_ShortDocumentFallsBackToTags(t *testing.T) {
	if fp := Fingerprint("<br/>"); fp == 0 {
		t.Error("single-tag document should fingerprint non-zero")
	}
}

func TestStructuralDistance_ShellVsRendered(t *testing.T) {
	shell := `<html><head></head><body><div id="root"></div></body></html>`
	rendered := `<html><head></head><body><div id="root">
		<header><nav><a>a</a><a>b</a><a>c</a></nav></header>
		<main><section><h1>t</h1><ul><li>1</li><li>2</li><li>3</li></ul></section></main>
		<footer><p>f</p></footer>
	</div></body></html>`

	shellDist := StructuralDistance(shell, rendered)
	if shellDist < 3 {
		t.Errorf("shell vs rendered distance = %d, want a clear gap", shellDist)
	}

	if d := StructuralDistance(rendered, rendered); d != 0 {
		t.Errorf("identical snapshots distance = %d, want 0", d)
	}
}

func TestStructuralDistance_NestingDepthMatters(t *testing.T) {
	deep := `<div><div><div><p>x</p></div></div></div>`
	flat := `<div><p>x</p></div>`
	if StructuralDistance(deep, flat) == 0 {
		t.Error("different nesting depths should not fingerprint identically")
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xABCD, 0xABCD, 0},
		{"inverse", 0, ^uint64(0), 64},
		{"single bit", 8, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%#x, %#x) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTagSequence(t *testing.T) {
	tags := tagSequence(`<html><body><div><img src="x"/><p>t</p></div></body></html>`)
	want := []string{"html", "body", "div", "img", "p"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestShingles(t *testing.T) {
	got := shingles([]string{"a", "b", "c", "d"}, 3)
	want := []string{"a>b>c", "b>c>d"}
	if len(got) != len(want) {
		t.Fatalf("shingles = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("shingles[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if s := shingles([]string{"a"}, 3); s != nil {
		t.Errorf("short sequence shingles = %v, want nil", s)
	}
}
