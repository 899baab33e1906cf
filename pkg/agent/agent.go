// Package agent defines the gateway's boundary to the agent-processing
// component: a Processor turns a command string into a loosely-structured
// result the session layer normalizes for the wire.
package agent

import "context"

// Processor is the agent-processing collaborator. The returned map is the
// raw response shape the websocket layer normalizes; see session.BuildFrame.
type Processor interface {
	Process(ctx context.Context, command, sessionToken string) (map[string]any, error)
}

// CleanupHook is implemented by processors that hold resources needing an
// orderly release at shutdown.
type CleanupHook interface {
	Cleanup(ctx context.Context) error
}

// Result is the closed variant a well-behaved processor produces before
// encoding. Either Plain is set, or the structured fields are.
type Result struct {
	Intent    string
	Message   string
	Plain     string
	VideoURLs []string
	Query     string
}

// Map encodes the result into the raw response shape consumed by the
// session normalizer.
func (r Result) Map() map[string]any {
	out := make(map[string]any, 2)
	if r.Intent != "" {
		out["intent"] = r.Intent
	}

	if r.Message == "" && r.VideoURLs == nil && r.Query == "" {
		out["result"] = r.Plain
		return out
	}

	res := map[string]any{"message": r.Message}
	if r.VideoURLs != nil {
		urls := make([]any, len(r.VideoURLs))
		for i, u := range r.VideoURLs {
			urls[i] = u
		}
		res["video_urls"] = urls
	}
	if r.Query != "" {
		res["query"] = r.Query
	}
	out["result"] = res
	return out
}
