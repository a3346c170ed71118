package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// CurrentVersion is written into every encoded UserRecord.
const CurrentVersion = 1

// ErrMalformed reports stored bytes that are not a UserRecord document.
var ErrMalformed = errors.New("malformed user record")

// Decode parses a stored document. Empty input yields an empty record.
// Documents without a version field are treated as version 1.
func Decode(data []byte) (UserRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return emptyRecord(), nil
	}
	if !gjson.ValidBytes(data) {
		return UserRecord{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return UserRecord{}, fmt.Errorf("%w: top level is %s, want object", ErrMalformed, root.Type)
	}
	if conv := root.Get("conversations"); conv.Exists() && !conv.IsArray() && conv.Type != gjson.Null {
		return UserRecord{}, fmt.Errorf("%w: conversations is not an array", ErrMalformed)
	}

	if !root.Get("version").Exists() {
		stamped, err := sjson.SetBytes(data, "version", CurrentVersion)
		if err != nil {
			return UserRecord{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		data = stamped
	}

	var rec UserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rec.Conversations == nil {
		rec.Conversations = []Conversation{}
	}
	for i := range rec.Conversations {
		if rec.Conversations[i].Messages == nil {
			rec.Conversations[i].Messages = []Message{}
		}
	}
	return rec, nil
}

// Encode renders rec as indented JSON at CurrentVersion. Non-ASCII and HTML
// characters are written literally.
func Encode(rec UserRecord) ([]byte, error) {
	rec.Version = CurrentVersion
	if rec.Conversations == nil {
		rec.Conversations = []Conversation{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func emptyRecord() UserRecord {
	return UserRecord{Version: CurrentVersion, Conversations: []Conversation{}}
}
