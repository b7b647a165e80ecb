// Package event defines the record type flowing from the upstream pipeline
// into the publisher.
//
// An Event is a set of named fields. Two fields are always present:
//   - "@timestamp": when the event happened, normalised to UTC
//   - "@version": schema version of the event, "1" unless supplied
//
// Fields are addressed either by plain name ("subtopic") or by a bracketed
// path into nested objects ("[device][room]"). Sprintf resolves %{ref}
// placeholders against those references, which is how per-event MQTT
// topics are derived from a template like "sensors/%{[device][room]}".
package event
