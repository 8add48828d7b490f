package activedoc

import "strings"

const (
	// CurrentChangeHeading titles the section describing the latest change.
	CurrentChangeHeading = "当前变更"
	// DocumentHeading titles the section holding the directory documentation.
	DocumentHeading = "文档"
)

// Sections is the parsed structure of an active context document.
type Sections struct {
	Header        string `json:"header"`
	CurrentChange string `json:"current_change"`
	Document      string `json:"document"`
}

type section int

const (
	sectionHeader section = iota
	sectionCurrentChange
	sectionDocument
	sectionOther
)

// Parse splits content at its second-level headings. Header is the text
// before the first "## " line and is empty when the document has no such
// line. Each named section runs to the next "## " line or the end; only the
// first occurrence of a heading counts. All values are trimmed. Parse never
// fails: missing sections are "".
func Parse(content string) Sections {
	var header, current, document []string
	hasHeading := false
	seenCurrent, seenDocument := false, false
	cur := sectionHeader
	for _, line := range strings.Split(content, "\n") {
		if title, ok := headingTitle(line); ok {
			hasHeading = true
			switch {
			case title == CurrentChangeHeading && !seenCurrent:
				seenCurrent = true
				cur = sectionCurrentChange
			case title == DocumentHeading && !seenDocument:
				seenDocument = true
				cur = sectionDocument
			default:
				cur = sectionOther
			}
			continue
		}
		switch cur {
		case sectionHeader:
			header = append(header, line)
		case sectionCurrentChange:
			current = append(current, line)
		case sectionDocument:
			document = append(document, line)
		}
	}
	s := Sections{
		CurrentChange: join(current),
		Document:      join(document),
	}
	if hasHeading {
		s.Header = join(header)
	}
	return s
}

// Render serializes s with both section headings present. For sections whose
// bodies contain no "## " line, Parse(Render(s)) returns the trimmed input.
func Render(s Sections) string {
	var b strings.Builder
	if h := strings.TrimSpace(s.Header); h != "" {
		b.WriteString(h)
		b.WriteString("\n\n")
	}
	writeSection(&b, CurrentChangeHeading, s.CurrentChange)
	b.WriteString("\n")
	writeSection(&b, DocumentHeading, s.Document)
	return b.String()
}

func writeSection(b *strings.Builder, title, body string) {
	b.WriteString("## ")
	b.WriteString(title)
	b.WriteString("\n")
	if body = strings.TrimSpace(body); body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
}

// headingTitle reports whether line is a second-level heading and returns its
// title without surrounding whitespace.
func headingTitle(line string) (string, bool) {
	line = strings.TrimRight(line, " \t\r")
	if line == "##" {
		return "", true
	}
	if !strings.HasPrefix(line, "## ") {
		return "", false
	}
	return strings.TrimSpace(line[3:]), true
}

func join(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
