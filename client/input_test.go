package client

import (
	"errors"
	"testing"
)

func TestResolveURL_SupportedShapes(t *testing.T) {
	const want = "https://www.bilibili.com/video/BV1xx411c7mD"
	tests := []string{
		"BV1xx411c7mD",
		"  BV1xx411c7mD\n",
		"https://www.bilibili.com/video/BV1xx411c7mD",
		"https://www.bilibili.com/video/BV1xx411c7mD/",
		"https://www.bilibili.com/video/BV1xx411c7mD?p=2&spm_id_from=333.1007",
		"https://www.bilibili.com/video/BV1xx411c7mD#reply123",
		"https://www.bilibili.com/video/BV1xx411c7mD/?share_source=copy_web",
		"http://m.bilibili.com/video/BV1xx411c7mD",
		"www.bilibili.com/video/BV1xx411c7mD",
	}
	for _, in := range tests {
		got, err := ResolveURL("", in)
		if err != nil {
			t.Fatalf("ResolveURL(%q) error=%v", in, err)
		}
		if got != want {
			t.Fatalf("ResolveURL(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestResolveURL_Idempotent(t *testing.T) {
	for _, in := range []string{"BV1xx411c7mD", "av170001", "https://www.bilibili.com/video/BV1xx411c7mD?p=3"} {
		first, err := ResolveURL("example.test", in)
		if err != nil {
			t.Fatalf("ResolveURL(%q) error=%v", in, err)
		}
		second, err := ResolveURL("example.test", first)
		if err != nil {
			t.Fatalf("ResolveURL(%q) error=%v", first, err)
		}
		if first != second {
			t.Fatalf("not idempotent: %q -> %q", first, second)
		}
	}
}

func TestResolveURL_CustomHost(t *testing.T) {
	got, err := ResolveURL("127.0.0.1:8080/", "BV1")
	if err != nil || got != "https://127.0.0.1:8080/video/BV1" {
		t.Fatalf("ResolveURL()=%q, %v", got, err)
	}
}

func TestResolveURL_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"not a code",
		"https://www.bilibili.com/bangumi/play/ep1",
		"https://www.bilibili.com/video/",
		"https://www.bilibili.com/video/BV1-bad",
	} {
		_, err := ResolveURL("", in)
		if !errors.Is(err, ErrMalformedIdentifier) {
			t.Fatalf("ResolveURL(%q) expected ErrMalformedIdentifier, got %v", in, err)
		}
		var detail *MalformedIdentifierError
		if !errors.As(err, &detail) || detail.Input != in {
			t.Fatalf("ResolveURL(%q) detail=%+v", in, detail)
		}
	}
}
