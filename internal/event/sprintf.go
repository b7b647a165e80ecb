package event

import "strings"

// Sprintf substitutes every %{ref} placeholder in template with the string
// value of that field. Placeholders naming a missing field are left as
// literal text.
//
//	e := event.New(map[string]any{"subtopic": "mysubtopic"})
//	e.Sprintf("hello/%{subtopic}") // "hello/mysubtopic"
func (e *Event) Sprintf(template string) string {
	if !strings.Contains(template, "%{") {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	rest := template
	for {
		start := strings.Index(rest, "%{")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start+2:], '}')
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += start + 2

		b.WriteString(rest[:start])
		ref := rest[start+2 : end]
		if v, ok := e.Get(ref); ok {
			b.WriteString(Stringify(v))
		} else {
			b.WriteString(rest[start : end+1])
		}
		rest = rest[end+1:]
	}

	return b.String()
}
