package domain

import "encoding/json"

// LogResponseKind discriminates LogResponse.
type LogResponseKind string

const (
	LogNone   LogResponseKind = "None"
	LogSingle LogResponseKind = "Single"
	LogMany   LogResponseKind = "Many"
)

// LogResponse is the payload of the log read endpoints: no logs at all,
// one buffer (a live step, or a step with a single archived blob), or a
// list of buffers (one per archived blob).
type LogResponse struct {
	Kind     LogResponseKind
	Content  string
	Contents []string
}

func NoLogs() LogResponse {
	return LogResponse{Kind: LogNone}
}

func SingleLog(content string) LogResponse {
	return LogResponse{Kind: LogSingle, Content: content}
}

func ManyLogs(contents []string) LogResponse {
	return LogResponse{Kind: LogMany, Contents: contents}
}

// MarshalJSON serializes as {"logs": null}, {"logs": "..."} or
// {"logs": ["...", ...]} depending on the kind.
func (l LogResponse) MarshalJSON() ([]byte, error) {
	switch l.Kind {
	case LogSingle:
		return json.Marshal(map[string]any{"logs": l.Content})
	case LogMany:
		return json.Marshal(map[string]any{"logs": l.Contents})
	default:
		return json.Marshal(map[string]any{"logs": nil})
	}
}
