package domain

import (
	"bytes"
	"encoding/json"
)

type BucketKind int

const (
	BucketSequence BucketKind = iota
	BucketMapping
)

const (
	BucketCodeSnippets  = "code_snippets"
	BucketGameState     = "game_state"
	BucketDecisions     = "decisions"
	BucketFilesModified = "files_modified"
)

// ArtifactBuckets is the closed set of buckets an update may merge into.
var ArtifactBuckets = map[string]BucketKind{
	BucketCodeSnippets:  BucketSequence,
	BucketGameState:     BucketMapping,
	BucketDecisions:     BucketSequence,
	BucketFilesModified: BucketSequence,
}

type Artifacts struct {
	CodeSnippets  []string       `json:"code_snippets"`
	GameState     map[string]any `json:"game_state"`
	Decisions     []string       `json:"decisions"`
	FilesModified []string       `json:"files_modified"`
}

func NewArtifacts() Artifacts {
	return Artifacts{
		CodeSnippets:  []string{},
		GameState:     map[string]any{},
		Decisions:     []string{},
		FilesModified: []string{},
	}
}

// Sequence returns a pointer to the named sequence bucket, or nil when the
// bucket is unknown or is a mapping.
func (a *Artifacts) Sequence(bucket string) *[]string {
	switch bucket {
	case BucketCodeSnippets:
		return &a.CodeSnippets
	case BucketDecisions:
		return &a.Decisions
	case BucketFilesModified:
		return &a.FilesModified
	default:
		return nil
	}
}

// Mapping returns the named mapping bucket, or nil when unknown.
func (a *Artifacts) Mapping(bucket string) map[string]any {
	if bucket != BucketGameState {
		return nil
	}
	if a.GameState == nil {
		a.GameState = map[string]any{}
	}
	return a.GameState
}

func (a Artifacts) Clone() Artifacts {
	out := Artifacts{
		CodeSnippets:  append(make([]string, 0, len(a.CodeSnippets)), a.CodeSnippets...),
		GameState:     make(map[string]any, len(a.GameState)),
		Decisions:     append(make([]string, 0, len(a.Decisions)), a.Decisions...),
		FilesModified: append(make([]string, 0, len(a.FilesModified)), a.FilesModified...),
	}
	for key, value := range a.GameState {
		out.GameState[key] = cloneValue(value)
	}
	return out
}

func (a Artifacts) normalized() Artifacts {
	if a.CodeSnippets == nil {
		a.CodeSnippets = []string{}
	}
	if a.GameState == nil {
		a.GameState = map[string]any{}
	}
	if a.Decisions == nil {
		a.Decisions = []string{}
	}
	if a.FilesModified == nil {
		a.FilesModified = []string{}
	}
	return a
}

// UnmarshalJSON accepts non-string sequence items and keeps them as compact JSON text.
func (a *Artifacts) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := NewArtifacts()
	for bucket, kind := range ArtifactBuckets {
		value, ok := raw[bucket]
		if !ok {
			continue
		}

		decoded, err := decodeValue(value)
		if err != nil {
			return err
		}

		switch kind {
		case BucketSequence:
			seq := out.Sequence(bucket)
			*seq = append(*seq, SequenceItems(decoded)...)
		case BucketMapping:
			if m, ok := decoded.(map[string]any); ok {
				out.GameState = m
			}
		}
	}

	*a = out
	return nil
}

// SequenceItems flattens a decoded JSON value into sequence bucket items: a
// list contributes each element, a bare value contributes itself, null nothing.
func SequenceItems(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			items = append(items, itemText(item))
		}
		return items
	default:
		return []string{itemText(v)}
	}
}

func itemText(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// decodeValue keeps numbers as json.Number so large integers survive a
// round trip.
func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
