package naming

import (
	"path/filepath"
	"testing"
)

func TestOutputPath(t *testing.T) {
	cases := []struct {
		input     string
		container string
		want      string
	}{
		{"/videos/holiday.mov", "mp4", "/videos/holiday_av1.mp4"},
		{"/videos/holiday.mov", ".mkv", "/videos/holiday_av1.mkv"},
		{"/videos/my.film.2019.mkv", "mp4", "/videos/my.film.2019_av1.mp4"},
		{"/videos/noext", "mov", "/videos/noext_av1.mov"},
		{"clip.avi", "mp4", "clip_av1.mp4"},
	}
	for _, tc := range cases {
		got := OutputPath(filepath.FromSlash(tc.input), tc.container)
		if got != filepath.FromSlash(tc.want) {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tc.input, tc.container, got, tc.want)
		}
	}
}

func TestIsOutputName(t *testing.T) {
	cases := map[string]bool{
		"/v/holiday_av1.mp4":   true,
		"/v/holiday_2_av1.mp4": true,
		"/v/HOLIDAY_AV1.MKV":   true,
		"/v/holiday.mp4":       false,
		"/v/av1_holiday.mp4":   false,
		"/v/holiday_av1x.mp4":  false,
	}
	for path, want := range cases {
		if got := IsOutputName(path); got != want {
			t.Errorf("IsOutputName(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestCollisionResolver(t *testing.T) {
	cr := NewCollisionResolver()
	out := filepath.FromSlash("/v/movie_av1.mp4")

	if got := cr.Resolve("/v/movie.mkv", out); got != out {
		t.Fatalf("first claim = %q, want %q", got, out)
	}
	if got := cr.Resolve("/v/movie.mkv", out); got != out {
		t.Errorf("same owner = %q, want %q", got, out)
	}

	want2 := filepath.FromSlash("/v/movie_2_av1.mp4")
	if got := cr.Resolve("/v/movie.mov", out); got != want2 {
		t.Errorf("second claim = %q, want %q", got, want2)
	}
	want3 := filepath.FromSlash("/v/movie_3_av1.mp4")
	if got := cr.Resolve("/v/movie.avi", out); got != want3 {
		t.Errorf("third claim = %q, want %q", got, want3)
	}
	if !IsOutputName(want3) {
		t.Errorf("numbered output %q not recognized as output", want3)
	}
}
