package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrintfAppendsTimestampedLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := New(dir)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Printf("GET /borrowers status=%d\n", 200)
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "http.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "GET /borrowers status=200\n") {
		t.Fatalf("unexpected log contents %q", text)
	}
}
