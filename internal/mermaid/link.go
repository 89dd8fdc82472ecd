package mermaid

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/klauspost/compress/zlib"
)

const (
	// LiveViewURL is the mermaid.live viewer; the payload follows the fragment.
	LiveViewURL = "https://mermaid.live/view#pako:"

	pakoPrefix = "pako:"

	defaultTheme = `{"theme":"default"}`

	// maxInflatedSize caps the decoded size of a share link.
	maxInflatedSize = 8 << 20
)

// ErrEmptyPayload is returned when a share link carries no payload.
var ErrEmptyPayload = errors.New("empty share link payload")

// State is the editor state mermaid.live stores in a pako link.
type State struct {
	Code          string `json:"code"`
	Mermaid       string `json:"mermaid"`
	AutoSync      bool   `json:"autoSync"`
	UpdateDiagram bool   `json:"updateDiagram"`
}

// NewState wraps diagram text in the default editor state.
func NewState(diagram string) State {
	return State{
		Code:          diagram,
		Mermaid:       defaultTheme,
		AutoSync:      true,
		UpdateDiagram: true,
	}
}

// Encode returns the pako payload for diagram: the editor state as JSON,
// zlib-compressed at level 9, in unpadded URL-safe base64.
func Encode(diagram string) (string, error) {
	state, err := json.Marshal(NewState(diagram))
	if err != nil {
		return "", fmt.Errorf("Encode: failed to marshal state: %w", err)
	}

	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("Encode: failed to create zlib writer: %w", err)
	}
	if _, err := w.Write(state); err != nil {
		return "", fmt.Errorf("Encode: failed to compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Encode: failed to flush: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodeLiveURL returns a mermaid.live link that opens diagram in the viewer.
func EncodeLiveURL(diagram string) (string, error) {
	payload, err := Encode(diagram)
	if err != nil {
		return "", err
	}
	return LiveViewURL + payload, nil
}

// Decode extracts the diagram text from a share link. input may be a full
// mermaid.live URL, a "pako:" prefixed payload or a bare payload, optionally
// percent-encoded, in standard or URL-safe base64 with or without padding.
// Links that hold plain diagram text instead of an editor state are
// returned as-is.
func Decode(input string) (string, error) {
	payload := extractPayload(input)
	if payload == "" {
		return "", ErrEmptyPayload
	}

	if strings.Contains(payload, "%") {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return "", fmt.Errorf("Decode: failed to percent-decode payload: %w", err)
		}
		payload = unescaped
	}

	compressed, err := decodeBase64(payload)
	if err != nil {
		return "", fmt.Errorf("Decode: invalid base64 payload: %w", err)
	}

	text, err := inflate(compressed)
	if err != nil {
		return "", fmt.Errorf("Decode: %w", err)
	}

	if state, ok := parseState(text); ok {
		return state.Code, nil
	}
	return text, nil
}

func extractPayload(input string) string {
	input = strings.TrimSpace(input)
	if i := strings.Index(input, "#"+pakoPrefix); i >= 0 {
		return input[i+len(pakoPrefix)+1:]
	}
	return strings.TrimPrefix(input, pakoPrefix)
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	s = strings.NewReplacer("-", "+", "_", "/", "\n", "", "\r", "", " ", "").Replace(s)
	return base64.RawStdEncoding.DecodeString(s)
}

func inflate(compressed []byte) (string, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", fmt.Errorf("failed to open zlib stream: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxInflatedSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to inflate payload: %w", err)
	}
	if len(data) > maxInflatedSize {
		return "", fmt.Errorf("inflated payload exceeds %d bytes", maxInflatedSize)
	}
	return string(data), nil
}

func parseState(text string) (State, bool) {
	if !strings.HasPrefix(strings.TrimSpace(text), "{") {
		return State{}, false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return State{}, false
	}
	if _, ok := probe["code"]; !ok {
		return State{}, false
	}

	var state State
	if err := json.Unmarshal([]byte(text), &state); err != nil {
		return State{}, false
	}
	return state, true
}
