package radario

import (
	"strconv"
	"strings"
)

// unwrap returns the order object from any of the delivered envelopes:
// {notification:{model:{...}}}, {model:{...}} or the bare order.
func unwrap(doc map[string]any) map[string]any {
	if v, ok := lookup(doc, "Notification.Model"); ok {
		if model, ok := v.(map[string]any); ok {
			return model
		}
	}
	if v, ok := lookup(doc, "Model"); ok {
		if model, ok := v.(map[string]any); ok {
			return model
		}
	}
	return doc
}

// lookup walks a dotted path. Keys match case-insensitively per segment and
// numeric segments index into arrays, e.g. "Tickets.0.OwnerName".
func lookup(doc map[string]any, path string) (any, bool) {
	var current any = doc
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := field(node, segment)
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

func field(node map[string]any, key string) (any, bool) {
	if v, ok := node[key]; ok {
		return v, true
	}
	for k, v := range node {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
