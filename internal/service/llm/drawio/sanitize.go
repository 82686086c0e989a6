// Package drawio repairs and checks the mxfile documents returned by chat models.
package drawio

import (
	"regexp"
	"strings"
)

const (
	envelopeOpen  = `<mxfile host="app.diagrams.net"><diagram name="Page-1" id="page-1">`
	envelopeClose = `</diagram></mxfile>`
)

var (
	fenceRe    = regexp.MustCompile("```[a-zA-Z]*")
	xmlDeclRe  = regexp.MustCompile(`^\s*<\?xml[^>]*\?>\s*`)
	startTagRe = regexp.MustCompile(`<([A-Za-z_][\w:.-]*)((?:\s+[^\s=/<>"']+\s*=\s*(?:"[^"]*"|'[^']*'))*)\s*(/?)>`)
	attrRe     = regexp.MustCompile(`([^\s=/<>"']+)\s*=\s*("[^"]*"|'[^']*')`)
	voidRe     = regexp.MustCompile(`(?i)<(br|hr|img|input|meta|link|area|base|col|embed|source|track|wbr)\b([^<>]*?)(/?)>`)
)

// Sanitize runs every repair stage in order. Each stage is total, so the
// result is always best-effort text; Validate decides whether it is usable.
func Sanitize(raw string) string {
	s := StripFences(raw)
	s = TrimToDocument(s)
	s = DedupeAttributes(s)
	s = CloseVoidElements(s)
	return WrapEnvelope(s)
}

// StripFences removes markdown code fence markers such as ```xml.
func StripFences(s string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// TrimToDocument drops prose before the first mxfile (or mxGraphModel)
// start tag and after its last closing tag.
func TrimToDocument(s string) string {
	for _, tag := range []string{"mxfile", "mxGraphModel"} {
		start := strings.Index(s, "<"+tag)
		if start < 0 {
			continue
		}
		closing := "</" + tag + ">"
		end := strings.LastIndex(s, closing)
		if end < start {
			return strings.TrimSpace(s[start:])
		}
		return s[start : end+len(closing)]
	}
	return s
}

// DedupeAttributes collapses repeated attribute keys in start tags. The last
// value wins and keys keep their first-seen order. Tags without repeats are
// returned byte for byte.
func DedupeAttributes(s string) string {
	return startTagRe.ReplaceAllStringFunc(s, func(tag string) string {
		m := startTagRe.FindStringSubmatch(tag)
		name, attrs, selfClose := m[1], m[2], m[3]

		pairs := attrRe.FindAllStringSubmatch(attrs, -1)
		if len(pairs) < 2 {
			return tag
		}

		order := make([]string, 0, len(pairs))
		values := make(map[string]string, len(pairs))
		for _, p := range pairs {
			if _, seen := values[p[1]]; !seen {
				order = append(order, p[1])
			}
			values[p[1]] = p[2]
		}
		if len(order) == len(pairs) {
			return tag
		}

		var b strings.Builder
		b.WriteString("<")
		b.WriteString(name)
		for _, key := range order {
			b.WriteString(" ")
			b.WriteString(key)
			b.WriteString("=")
			b.WriteString(values[key])
		}
		b.WriteString(selfClose)
		b.WriteString(">")
		return b.String()
	})
}

// CloseVoidElements turns HTML void elements like <br> into <br/>.
func CloseVoidElements(s string) string {
	return voidRe.ReplaceAllStringFunc(s, func(tag string) string {
		m := voidRe.FindStringSubmatch(tag)
		if m[3] == "/" {
			return tag
		}
		return "<" + m[1] + m[2] + "/>"
	})
}

// WrapEnvelope wraps a bare mxGraphModel in a single-page mxfile.
func WrapEnvelope(s string) string {
	if strings.Contains(s, "<mxfile") || !strings.Contains(s, "<mxGraphModel") {
		return s
	}
	body := xmlDeclRe.ReplaceAllString(s, "")
	return envelopeOpen + body + envelopeClose
}
