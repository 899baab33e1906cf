package session

import "fmt"

// BuildFrame normalizes a raw agent response into the outbound websocket
// frame. Pure: the same raw input always yields the same frame.
//
// The raw shape is loose by contract: a mapping with optional "intent",
// "result" and "video_urls" fields, or any plain value. Video URLs are
// looked up at the top level first, then under result. Message text is
// resolved in priority order: a youtube_search intent reads
// result.message; otherwise a result mapping yields its message, its
// nested result, or its string form; a non-mapping result (or response)
// is stringified.
func BuildFrame(raw any) map[string]any {
	respMap, isMap := raw.(map[string]any)

	var videoURLs []any
	if isMap {
		if urls, ok := respMap["video_urls"].([]any); ok {
			videoURLs = urls
		} else if result, ok := respMap["result"].(map[string]any); ok {
			if urls, ok := result["video_urls"].([]any); ok {
				videoURLs = urls
			}
		}
	}

	var data any
	switch {
	case isMap && respMap["intent"] == "youtube_search":
		data = ""
		if result, ok := respMap["result"].(map[string]any); ok {
			if msg, ok := result["message"]; ok {
				data = msg
			}
		}
	case isMap:
		if result, ok := respMap["result"].(map[string]any); ok {
			if msg, ok := result["message"]; ok {
				data = msg
			} else if inner, ok := result["result"]; ok {
				data = inner
			} else {
				data = stringify(result)
			}
		} else if v, ok := respMap["result"]; ok {
			data = stringify(v)
		} else {
			data = stringify(respMap)
		}
	default:
		data = stringify(raw)
	}

	metadata := map[string]any{}
	frame := map[string]any{
		"type":     "response",
		"data":     data,
		"metadata": metadata,
	}

	if len(videoURLs) > 0 {
		frame["video_urls"] = videoURLs
		metadata["content_type"] = "youtube_videos"
		query := ""
		if isMap {
			if result, ok := respMap["result"].(map[string]any); ok {
				if q, ok := result["query"].(string); ok {
					query = q
				}
			}
		}
		metadata["query"] = query
		metadata["count"] = len(videoURLs)
	}

	if isMap {
		if intent, ok := respMap["intent"]; ok {
			metadata["intent"] = intent
		}
	}

	return frame
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
