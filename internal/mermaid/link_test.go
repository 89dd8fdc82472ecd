package mermaid

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
)

const sampleDiagram = "sequenceDiagram\n    autonumber\n    participant Binance (BTC)\n    participant Kraken (JPY)\n    Note right of Binance (BTC): 2021\n    Binance (BTC)->>Kraken (JPY): 0.2BTC -> 1,000,000JPY"

// legacyPayload compresses text as-is and encodes it in padded standard
// base64, the way links without an editor state were produced.
func legacyPayload(t *testing.T, text string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(text)); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestEncode_PayloadShape(t *testing.T) {
	payload, err := Encode(sampleDiagram)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if strings.ContainsAny(payload, "+/=") {
		t.Errorf("payload %q is not unpadded URL-safe base64", payload)
	}

	compressed, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("open zlib: %v", err)
	}
	defer r.Close()

	var state State
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state != NewState(sampleDiagram) {
		t.Errorf("state = %+v, want %+v", state, NewState(sampleDiagram))
	}
	if state.Mermaid != `{"theme":"default"}` {
		t.Errorf("mermaid config = %q", state.Mermaid)
	}
}

func TestEncodeLiveURL(t *testing.T) {
	link, err := EncodeLiveURL(sampleDiagram)
	if err != nil {
		t.Fatalf("EncodeLiveURL() error = %v", err)
	}
	if !strings.HasPrefix(link, "https://mermaid.live/view#pako:") {
		t.Errorf("link = %q, want mermaid.live view prefix", link)
	}
}

func TestDecode_InputForms(t *testing.T) {
	payload, err := Encode(sampleDiagram)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	padded := payload + strings.Repeat("=", (4-len(payload)%4)%4)
	std := strings.NewReplacer("-", "+", "_", "/").Replace(padded)

	tests := []struct {
		name  string
		input string
	}{
		{"full url", LiveViewURL + payload},
		{"edit url", "https://mermaid.live/edit#pako:" + payload},
		{"pako prefix", "pako:" + payload},
		{"bare payload", payload},
		{"surrounding whitespace", "  " + payload + "\n"},
		{"padded", padded},
		{"standard alphabet", std},
		{"percent encoded", "pako:" + url.QueryEscape(std)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.input)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != sampleDiagram {
				t.Errorf("Decode() = %q, want %q", got, sampleDiagram)
			}
		})
	}
}

func TestDecode_PlainTextPayload(t *testing.T) {
	got, err := Decode(LiveViewURL + legacyPayload(t, sampleDiagram))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != sampleDiagram {
		t.Errorf("Decode() = %q, want %q", got, sampleDiagram)
	}
}

func TestDecode_JSONWithoutCode(t *testing.T) {
	text := `{"theme":"dark"}`
	got, err := Decode(legacyPayload(t, text))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != text {
		t.Errorf("Decode() = %q, want the raw text %q", got, text)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrEmptyPayload},
		{"prefix only", "pako:", ErrEmptyPayload},
		{"url without payload", LiveViewURL, ErrEmptyPayload},
		{"not base64", "pako:!!!", nil},
		{"not zlib", base64.RawURLEncoding.EncodeToString([]byte("plain bytes")), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			if err == nil {
				t.Fatal("Decode() error = nil, want an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
