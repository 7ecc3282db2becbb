package playlist

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

// TestNewUTF8Reader_AlreadyUTF8 tests that UTF-8 content passes through unchanged
func TestNewUTF8Reader_AlreadyUTF8(t *testing.T) {
	t.Parallel()
	input := []byte("#EXTM3U\n#EXTINF:-1,Первый канал ☺\n")

	reader, err := newUTF8Reader(bytes.NewReader(input), "")
	if err != nil {
		t.Fatalf("newUTF8Reader failed: %v", err)
	}

	output, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("Failed to read from UTF-8 reader: %v", err)
	}

	if !bytes.Equal(output, input) {
		t.Errorf("Expected UTF-8 content to pass through unchanged, got: %q", output)
	}
}

// TestNewUTF8Reader_Windows1251FromContentType tests conversion driven by the
// charset declared in the Content-Type header
func TestNewUTF8Reader_Windows1251FromContentType(t *testing.T) {
	t.Parallel()
	channelName := "Первый канал"
	encoded, err := charmap.Windows1251.NewEncoder().String("#EXTINF:-1," + channelName)
	if err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}

	reader, err := newUTF8Reader(strings.NewReader(encoded), "audio/mpegurl; charset=windows-1251")
	if err != nil {
		t.Fatalf("newUTF8Reader failed: %v", err)
	}

	output, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("Failed to read from UTF-8 reader: %v", err)
	}

	if !strings.Contains(string(output), channelName) {
		t.Errorf("Expected %q in UTF-8 output, got: %q", channelName, output)
	}
}

// TestNewUTF8Reader_Latin1FromContentType tests conversion from ISO-8859-1
func TestNewUTF8Reader_Latin1FromContentType(t *testing.T) {
	t.Parallel()
	// é = 0xE9 in ISO-8859-1
	input := []byte("#EXTINF:-1,Canal Caf" + string([]byte{0xE9}))

	reader, err := newUTF8Reader(bytes.NewReader(input), "text/plain; charset=iso-8859-1")
	if err != nil {
		t.Fatalf("newUTF8Reader failed: %v", err)
	}

	output, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("Failed to read from UTF-8 reader: %v", err)
	}

	if !strings.Contains(string(output), "Café") {
		t.Errorf("Expected 'Café' in UTF-8 output, got: %q", output)
	}
}

// TestNewUTF8Reader_NoContentType tests that plain ASCII survives heuristic
// detection when no charset is declared
func TestNewUTF8Reader_NoContentType(t *testing.T) {
	t.Parallel()
	input := []byte("#EXTM3U\n#EXTINF:-1,Channel One\nhttp://stream.example/1\n")

	reader, err := newUTF8Reader(bytes.NewReader(input), "")
	if err != nil {
		t.Fatalf("newUTF8Reader failed: %v", err)
	}

	output, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("Failed to read from UTF-8 reader: %v", err)
	}

	if !strings.Contains(string(output), "Channel One") {
		t.Errorf("Expected 'Channel One' in output, got: %q", output)
	}
}
