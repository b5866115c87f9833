package qti

import "testing"

func TestFlattenHTML(t *testing.T) {
	cases := []struct{ in, want string }{
		{"<p>Read   carefully.</p>", "Read carefully."},
		{"&lt;p&gt;Answer &amp;amp; move on.&lt;/p&gt;", "Answer & move on."},
		{"plain text", "plain text"},
		{"", ""},
	}
	for _, c := range cases {
		if got := flattenHTML(c.in); got != c.want {
			t.Errorf("flattenHTML(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCoverTextAbsentDescription(t *testing.T) {
	zr := buildZip(t, map[string][]byte{
		"q/meta.xml": []byte(`<quiz xmlns="http://canvas.instructure.com/xsd/cccv1p0"><title>Quiz</title></quiz>`),
	})
	if got := coverText(zr.File[0]); got != "" {
		t.Fatalf("coverText = %q, want empty", got)
	}
}
