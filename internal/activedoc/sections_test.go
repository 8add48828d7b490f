package activedoc

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    Sections
	}{
		{
			name:    "full",
			content: "# Title\nintro\n\n## 当前变更\n\n- cache added\n\n## 文档\n\nThe pkg helpers.\n",
			want:    Sections{Header: "# Title\nintro", CurrentChange: "- cache added", Document: "The pkg helpers."},
		},
		{
			name:    "document only",
			content: "## 文档\nbody",
			want:    Sections{Document: "body"},
		},
		{
			name:    "trailing whitespace in heading",
			content: "head\n## 当前变更   \nchange\n## 文档\t\ndoc",
			want:    Sections{Header: "head", CurrentChange: "change", Document: "doc"},
		},
		{
			name:    "other section ends a body",
			content: "## 当前变更\nchange\n## Notes\nignored\n## 文档\ndoc\n### sub\nkept",
			want:    Sections{CurrentChange: "change", Document: "doc\n### sub\nkept"},
		},
		{
			name:    "no headings",
			content: "just text",
			want:    Sections{},
		},
		{
			name:    "first occurrence wins",
			content: "## 文档\nfirst\n## 文档\nsecond",
			want:    Sections{Document: "first"},
		},
		{
			name:    "empty",
			content: "",
			want:    Sections{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Parse(tc.content); got != tc.want {
				t.Fatalf("unexpected sections\nwant: %+v\n got: %+v", tc.want, got)
			}
		})
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	cases := []Sections{
		{Header: "# pkg", CurrentChange: "- one\n- two", Document: "docs\n\n### api\ntext"},
		{CurrentChange: "only change"},
		{Document: "only doc"},
		{},
		{Header: "  padded  ", CurrentChange: "\n\nx\n\n", Document: " y "},
	}
	for _, in := range cases {
		got := Parse(Render(in))
		want := Sections{Header: trim(in.Header), CurrentChange: trim(in.CurrentChange), Document: trim(in.Document)}
		if got != want {
			t.Fatalf("round trip mismatch\nwant: %+v\n got: %+v\nrendered:\n%s", want, got, Render(in))
		}
	}
}

func TestRenderAlwaysHasHeadings(t *testing.T) {
	want := "## 当前变更\n\n## 文档\n"
	if got := Render(Sections{}); got != want {
		t.Fatalf("unexpected render: %q", got)
	}
}

func trim(s string) string {
	return join([]string{s})
}
