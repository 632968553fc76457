package utils

const (
	titleMax   = 30
	previewMax = 50
)

// ChatTitle derives a chat title from the first query: the first 30
// characters, with an ellipsis marker when the query was longer.
func ChatTitle(query string) string {
	runes := []rune(query)
	if len(runes) <= titleMax {
		return query
	}
	return string(runes[:titleMax]) + "..."
}

// CreatePreview is the preview stored when a chat is first created: the
// raw query capped at 50 characters, no marker.
func CreatePreview(query string) string {
	runes := []rune(query)
	if len(runes) <= previewMax {
		return query
	}
	return string(runes[:previewMax])
}

// MessagePreview is the preview stored when a message is saved into an
// existing chat. The trailing marker is unconditional.
func MessagePreview(content string) string {
	runes := []rune(content)
	if len(runes) > previewMax {
		runes = runes[:previewMax]
	}
	return string(runes) + "..."
}
