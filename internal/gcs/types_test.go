package gcs

import "testing"

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://exports/koinly/2021.csv", "exports", "koinly/2021.csv", false},
		{"gs://exports/file.csv", "exports", "file.csv", false},
		{"gs://exports", "", "", true},
		{"gs://exports/", "", "", true},
		{"gs:///file.csv", "", "", true},
		{"s3://exports/file.csv", "", "", true},
		{"/tmp/file.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI() = (%q, %q), want (%q, %q)", bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/folder/export.csv", "export.csv"},
		{"gs://bucket/export.csv", "export.csv"},
		{"gs://bucket", "bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			if got := ExtractFilenameFromGCSURI(tt.uri); got != tt.want {
				t.Errorf("ExtractFilenameFromGCSURI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDiagramURI(t *testing.T) {
	if got := DiagramURI("out", "1234"); got != "gs://out/diagrams/1234.mmd" {
		t.Errorf("DiagramURI() = %q", got)
	}
}
