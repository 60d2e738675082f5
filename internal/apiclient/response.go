package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// envelope covers the wrappers the backend uses around payloads.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message json.RawMessage `json:"message"`
}

// DecodeList extracts a collection from a list response. Accepted shapes,
// in order of precedence:
//
//	[ ... ]
//	{"data": [ ... ]}
//	{"message": [ ... ]}
//
// Any other shape is reported as KindUnknown.
func DecodeList[T any](raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)

	if isArray(raw) {
		return decodeArray[T](raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &Error{Kind: KindUnknown, Message: "unrecognised list response", Err: err}
	}

	if isArray(env.Data) {
		return decodeArray[T](env.Data)
	}
	if isArray(env.Message) {
		return decodeArray[T](env.Message)
	}

	return nil, &Error{Kind: KindUnknown, Message: "unrecognised list response"}
}

// DecodeEntity extracts a single entity from a mutation response, accepting
// {"data": {...}} or a bare object. ok is false when the body carries no
// entity, e.g. {"success": true} or an empty body.
func DecodeEntity[T any](raw []byte) (entity T, ok bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !isObject(raw) {
		return entity, false, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return entity, false, &Error{Kind: KindUnknown, Message: "unrecognised entity response", Err: err}
	}

	body := raw
	data, hasData := keys["data"]
	_, hasSuccess := keys["success"]
	_, hasMessage := keys["message"]
	switch {
	case hasData && isObject(data):
		body = data
	case hasData, hasSuccess, hasMessage && len(keys) == 1:
		// an envelope without an object payload
		return entity, false, nil
	}

	if err := json.Unmarshal(body, &entity); err != nil {
		return entity, false, &Error{Kind: KindUnknown, Message: "unrecognised entity response", Err: err}
	}
	return entity, true, nil
}

// serverMessage returns the human readable message in an error body, if any.
func serverMessage(body []byte) string {
	var env struct {
		Message any    `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if s, ok := env.Message.(string); ok && s != "" {
		return s
	}
	return env.Error
}

func decodeArray[T any](raw []byte) ([]T, error) {
	items := make([]T, 0)
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &Error{Kind: KindUnknown, Message: fmt.Sprintf("malformed list element: %v", err), Err: err}
	}
	return items, nil
}

func isArray(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
