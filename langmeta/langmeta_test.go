package langmeta

import (
	"strings"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "ru", want: "ru"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("english name from tables", func(t *testing.T) {
		got := Resolve("ru")
		if got.Name != "Russian" {
			t.Fatalf("Name = %q, want %q", got.Name, "Russian")
		}
		if got.Native != "русский" && got.Native != "Русский" {
			t.Fatalf("Native = %q, want Russian self-name", got.Native)
		}
	})

	t.Run("native override", func(t *testing.T) {
		got := Resolve("zh-CN")
		if got.Native != "简体中文" {
			t.Fatalf("Native = %q, want 简体中文", got.Native)
		}
		if !strings.Contains(got.Name, "Chinese") {
			t.Fatalf("Name = %q, want a Chinese display name", got.Name)
		}
	})

	t.Run("normalized match", func(t *testing.T) {
		got := Resolve("pt_br")
		if got.Native != "Português (Brasil)" {
			t.Fatalf("Native = %q, want Português (Brasil)", got.Native)
		}
	})

	t.Run("base fallback for override", func(t *testing.T) {
		got := Resolve("zh-SG")
		if got.Native != "中文" {
			t.Fatalf("Native = %q, want base override 中文", got.Native)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("zz-ZZ")
		if got.Name != "zz-ZZ" || got.Native != "zz-ZZ" {
			t.Fatalf("unexpected unknown result: %#v", got)
		}
	})
}

func TestSuffix(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "zh-CN", want: "zh_cn"},
		{in: "ru", want: "ru"},
		{in: "pt-BR", want: "pt_br"},
		{in: " EN-GB ", want: "en_gb"},
	}

	for _, tc := range cases {
		if got := Suffix(tc.in); got != tc.want {
			t.Fatalf("Suffix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
