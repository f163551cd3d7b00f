package protocol

import (
	"bytes"
	"testing"
)

func TestFramerSplitsLines(t *testing.T) {
	var f Framer
	f.Feed([]byte("{\"a\":1}\n{\"b\":2}\n"))

	line, ok := f.Next()
	if !ok || string(line) != `{"a":1}` {
		t.Fatalf("first line = %q, ok=%v", line, ok)
	}
	line, ok = f.Next()
	if !ok || string(line) != `{"b":2}` {
		t.Fatalf("second line = %q, ok=%v", line, ok)
	}
	if _, ok := f.Next(); ok {
		t.Fatal("expected no third line")
	}
}

func TestFramerBuffersPartialLine(t *testing.T) {
	var f Framer
	f.Feed([]byte(`{"type":"lo`))
	if _, ok := f.Next(); ok {
		t.Fatal("partial line must not be returned")
	}
	if f.Pending() == 0 {
		t.Fatal("partial line must stay buffered")
	}

	f.Feed([]byte("gin\"}\n"))
	line, ok := f.Next()
	if !ok || string(line) != `{"type":"login"}` {
		t.Fatalf("reassembled line = %q, ok=%v", line, ok)
	}
	if f.Pending() != 0 {
		t.Fatalf("pending = %d after full line consumed", f.Pending())
	}
}

func TestFramerSkipsBlankLines(t *testing.T) {
	var f Framer
	f.Feed([]byte("\n   \n\t\r\n{\"x\":1}\n\n"))

	line, ok := f.Next()
	if !ok || string(line) != `{"x":1}` {
		t.Fatalf("line = %q, ok=%v", line, ok)
	}
	if _, ok := f.Next(); ok {
		t.Fatal("trailing blank line must be discarded")
	}
}

func TestFramerLineSurvivesLaterFeeds(t *testing.T) {
	var f Framer
	f.Feed([]byte("first\n"))
	line, _ := f.Next()

	f.Feed(bytes.Repeat([]byte("x"), 64))
	if string(line) != "first" {
		t.Fatalf("returned line mutated by later Feed: %q", line)
	}
}

func TestFramerOneByteAtATime(t *testing.T) {
	var f Framer
	input := "{\"type\":\"chat\",\"room\":\"general\",\"message\":\"hi\"}\n"
	var got []byte
	for i := 0; i < len(input); i++ {
		f.Feed([]byte{input[i]})
		if line, ok := f.Next(); ok {
			got = line
		}
	}
	if string(got) != input[:len(input)-1] {
		t.Fatalf("line = %q", got)
	}
}
