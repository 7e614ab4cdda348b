package huggingface

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/Aloduin/DailyPaper/internal/domain"
)

const paperPageURL = "https://huggingface.co/papers/%s"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Normalize extracts a flat paper list from a daily-papers payload.
//
// The endpoint has returned its entries either wrapped in an "items" object
// or as a bare array, with the paper fields sometimes nested one level under
// a "paper" key. Any other top-level shape is a valid "no papers" result, and
// a malformed entry degrades to an empty-field record instead of failing the
// whole payload.
func Normalize(payload []byte) []domain.Paper {
	entries := decodeEntries(payload)

	papers := make([]domain.Paper, 0, len(entries))
	for _, entry := range entries {
		papers = append(papers, normalizeEntry(entry))
	}
	return papers
}

func decodeEntries(payload []byte) []jsoniter.RawMessage {
	var wrapped struct {
		Items []jsoniter.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(payload, &wrapped); err == nil && wrapped.Items != nil {
		return wrapped.Items
	}

	var bare []jsoniter.RawMessage
	if err := json.Unmarshal(payload, &bare); err == nil {
		return bare
	}

	return nil
}

func normalizeEntry(raw jsoniter.RawMessage) domain.Paper {
	obj := decodeObject(raw)
	if nested, ok := obj["paper"]; ok {
		if inner := decodeObject(nested); inner != nil {
			obj = inner
		}
	}

	paper := domain.Paper{
		Title:    stringField(obj, "title", "name"),
		Authors:  joinAuthors(obj["authors"]),
		Abstract: stringField(obj, "abstract", "summary", "description"),
		URL:      stringField(obj, "url", "paperUrl", "arxivUrl"),
	}

	if paper.URL == "" {
		if id := stringField(obj, "id", "paperId"); id != "" {
			paper.URL = fmt.Sprintf(paperPageURL, id)
		}
	}

	return paper
}

func decodeObject(raw jsoniter.RawMessage) map[string]jsoniter.RawMessage {
	if len(raw) == 0 {
		return nil
	}

	var obj map[string]jsoniter.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

// stringField returns the first key whose value decodes to a non-empty string.
func stringField(obj map[string]jsoniter.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}

		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		if value != "" {
			return value
		}
	}
	return ""
}

// joinAuthors renders the raw authors value as a single display string.
// A list is mapped element-wise to display names (dropping unresolvable
// entries) and joined with ", "; a plain string is used verbatim.
func joinAuthors(raw jsoniter.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var list []jsoniter.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		names := make([]string, 0, len(list))
		for _, item := range list {
			if name := authorName(item); name != "" {
				names = append(names, name)
			}
		}
		return strings.Join(names, ", ")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}

	return ""
}

func authorName(raw jsoniter.RawMessage) string {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}

	return stringField(decodeObject(raw), "name", "fullName", "displayName")
}
