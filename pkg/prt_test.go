package pkg

import (
	"bytes"
	"testing"
)

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, map[string]string{"result": "HELLO"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "{\n  \"result\": \"HELLO\"\n}\n" {
		t.Fatalf("unexpected output: %q", got)
	}

	if err := Print(&buf, make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}
