package event

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Reserved field names.
const (
	TimestampField = "@timestamp"
	VersionField   = "@version"
	MessageField   = "message"
	TagsField      = "tags"

	// rawTimestampField keeps an @timestamp value that could not be parsed.
	rawTimestampField = "_@timestamp"

	// TimestampParseFailureTag is added to events whose @timestamp could not be parsed.
	TimestampParseFailureTag = "_timestampparsefailure"

	defaultVersion = "1"
)

// TimestampLayout renders @timestamp as ISO-8601 UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// timestampLayouts are tried in order when @timestamp is given as a string.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Event is a single structured record.
//
// Thread Safety:
//   - An Event is not safe for concurrent mutation. The publisher only reads it.
type Event struct {
	fields    map[string]any
	timestamp time.Time
}

// now is replaced in tests.
var now = time.Now

// New builds an Event from a field map. The map is copied.
//
// @timestamp may be a time.Time, a string in one of the supported layouts,
// or epoch seconds. A missing value defaults to the current time; an
// unparseable one also defaults to now, keeps the raw value under
// "_@timestamp" and tags the event with "_timestampparsefailure".
func New(fields map[string]any) *Event {
	e := &Event{fields: make(map[string]any, len(fields)+2)}
	maps.Copy(e.fields, fields)

	raw, ok := e.fields[TimestampField]
	delete(e.fields, TimestampField)

	switch {
	case !ok || raw == nil:
		e.timestamp = now().UTC()
	default:
		ts, parsed := parseTimestamp(raw)
		if !parsed {
			e.fields[rawTimestampField] = raw
			e.addTag(TimestampParseFailureTag)
			ts = now().UTC()
		}
		e.timestamp = ts
	}

	if _, ok := e.fields[VersionField]; !ok {
		e.fields[VersionField] = defaultVersion
	}

	return e
}

// FromMessage builds an Event carrying only a message body.
func FromMessage(message string) *Event {
	return New(map[string]any{MessageField: message})
}

func parseTimestamp(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), true
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, v); err == nil {
				return ts.UTC(), true
			}
		}
	case float64:
		sec := int64(v)
		nsec := int64((v - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	case int:
		return time.Unix(int64(v), 0).UTC(), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return parseTimestamp(f)
		}
	}
	return time.Time{}, false
}

// addTag appends to a copy so a caller's tags slice is never written through.
func (e *Event) addTag(tag string) {
	switch tags := e.fields[TagsField].(type) {
	case []any:
		e.fields[TagsField] = append(slices.Clone(tags), tag)
	case []string:
		e.fields[TagsField] = append(slices.Clone(tags), tag)
	default:
		e.fields[TagsField] = []string{tag}
	}
}

// Timestamp returns the event time in UTC.
func (e *Event) Timestamp() time.Time {
	return e.timestamp
}

// Message returns the message field as a string, or "" if absent.
func (e *Event) Message() string {
	v, ok := e.Get(MessageField)
	if !ok {
		return ""
	}
	return Stringify(v)
}

// Get looks up a field by reference: "name" or "[outer][inner]".
// @timestamp is returned as a time.Time.
func (e *Event) Get(ref string) (any, bool) {
	path := parseRef(ref)
	if len(path) == 0 {
		return nil, false
	}

	if len(path) == 1 && path[0] == TimestampField {
		return e.timestamp, true
	}

	var cur any = e.fields
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set assigns a field by reference, creating intermediate objects as needed.
func (e *Event) Set(ref string, value any) {
	path := parseRef(ref)
	if len(path) == 0 {
		return
	}

	if len(path) == 1 && path[0] == TimestampField {
		if ts, ok := parseTimestamp(value); ok {
			e.timestamp = ts
		}
		return
	}

	m := e.fields
	for _, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[key] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

// parseRef splits "[a][b]" into ["a", "b"]; a plain name is a single element.
func parseRef(ref string) []string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if !strings.HasPrefix(ref, "[") {
		return []string{ref}
	}

	var path []string
	for ref != "" {
		if ref[0] != '[' {
			return nil
		}
		end := strings.IndexByte(ref, ']')
		if end < 0 {
			return nil
		}
		if key := ref[1:end]; key != "" {
			path = append(path, key)
		}
		ref = ref[end+1:]
	}
	return path
}

// Fields returns a copy of the event as a plain map, with @timestamp
// rendered in TimestampLayout.
func (e *Event) Fields() map[string]any {
	out := make(map[string]any, len(e.fields)+1)
	maps.Copy(out, e.fields)
	out[TimestampField] = e.timestamp.UTC().Format(TimestampLayout)
	return out
}

// MarshalJSON implements json.Marshaler.
func (e *Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Fields())
}

// Stringify renders a field value for placeholder substitution and the
// plain codecs. Maps and slices render as JSON.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case time.Time:
		return val.UTC().Format(TimestampLayout)
	case map[string]any, []any, []string:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}
