package storage

import (
	"strings"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"map.png":            "map.png",
		"../../etc/map.png":  "map.png",
		"my map (1).png":     "my_map__1_.png",
		"dir/sub/ok-name.gif": "ok-name.gif",
	}
	for in, want := range tests {
		if got := SanitizeName(in, ".png"); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
	if got := SanitizeName("", ".png"); !strings.HasSuffix(got, ".png") || len(got) != 36+4 {
		t.Errorf("fallback name = %q", got)
	}
}

func TestValidateIllustration(t *testing.T) {
	if err := ValidateIllustration("a.png", pngHeader); err != nil {
		t.Errorf("png: %v", err)
	}
	if err := ValidateIllustration("a.svg", []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`)); err != nil {
		t.Errorf("svg: %v", err)
	}
	if err := ValidateIllustration("a.jpg", pngHeader); err == nil {
		t.Error("png bytes accepted as jpg")
	}
	if err := ValidateIllustration("a.exe", pngHeader); err == nil {
		t.Error("exe extension accepted")
	}
	if err := ValidateIllustration("a.png", nil); err == nil {
		t.Error("empty file accepted")
	}
}

func TestExtensionForMIME(t *testing.T) {
	if got := ExtensionForMIME("image/jpeg; charset=binary"); got != ".jpg" {
		t.Errorf("got %q", got)
	}
	if got := ExtensionForMIME("text/html"); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestChecksum(t *testing.T) {
	// sha256("test")
	const want = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	if got := Checksum([]byte("test")); got != want {
		t.Errorf("Checksum = %s, want %s", got, want)
	}
	if Checksum(pngHeader) == Checksum(append([]byte{0}, pngHeader...)) {
		t.Error("different content, same checksum")
	}
}
