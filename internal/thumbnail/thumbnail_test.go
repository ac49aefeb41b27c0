package thumbnail

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StephanOrgiazzi/convertav1/internal/runner"
)

// fakeFFmpeg writes the last argument (the output path) according to which
// mode it was invoked in.
type fakeFFmpeg struct {
	extractBytes  []byte // nil: extraction writes nothing
	extractExit   int
	generateBytes []byte
	calls         []string
}

func (f *fakeFFmpeg) Run(_ context.Context, _ string, args ...string) (runner.Result, error) {
	dest := args[len(args)-1]
	if slices.Contains(args, "-map") {
		f.calls = append(f.calls, "extract")
		if f.extractBytes != nil {
			if err := os.WriteFile(dest, f.extractBytes, 0o644); err != nil {
				return runner.Result{}, err
			}
		}
		return runner.Result{ExitCode: f.extractExit, Stderr: "Stream map '0:9' matches no streams.\n"}, nil
	}
	f.calls = append(f.calls, "generate")
	if f.generateBytes != nil {
		if err := os.WriteFile(dest, f.generateBytes, 0o644); err != nil {
			return runner.Result{}, err
		}
	}
	return runner.Result{}, nil
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		ff        *fakeFFmpeg
		spec      string
		want      Source
		wantCalls []string
		wantErr   bool
	}{
		{
			name:      "extracts attached picture",
			ff:        &fakeFFmpeg{extractBytes: []byte("jpeg")},
			spec:      "0:2",
			want:      Extracted,
			wantCalls: []string{"extract"},
		},
		{
			name:      "no attached picture generates",
			ff:        &fakeFFmpeg{generateBytes: []byte("jpeg")},
			want:      Generated,
			wantCalls: []string{"generate"},
		},
		{
			name:      "empty extraction falls back",
			ff:        &fakeFFmpeg{extractBytes: []byte{}, generateBytes: []byte("jpeg")},
			spec:      "0:2",
			want:      Generated,
			wantCalls: []string{"extract", "generate"},
		},
		{
			name:      "failed extraction falls back",
			ff:        &fakeFFmpeg{extractExit: 1, generateBytes: []byte("jpeg")},
			spec:      "0:9",
			want:      Generated,
			wantCalls: []string{"extract", "generate"},
		},
		{
			name:      "nothing produced",
			ff:        &fakeFFmpeg{generateBytes: []byte{}},
			wantCalls: []string{"generate"},
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "thumb.jpg")
			src, err := NewResolver(tt.ff, "ffmpeg").Resolve(context.Background(), "in.mp4", tt.spec, dest)
			assert.Equal(t, tt.wantCalls, tt.ff.calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnavailable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, src)
		})
	}
}

type recordingRunner struct{ args []string }

func (r *recordingRunner) Run(_ context.Context, _ string, args ...string) (runner.Result, error) {
	r.args = args
	return runner.Result{}, os.WriteFile(args[len(args)-1], []byte("x"), 0o644)
}

func TestResolve_GenerateArgs(t *testing.T) {
	rr := &recordingRunner{}
	dest := filepath.Join(t.TempDir(), "t.jpg")
	_, err := NewResolver(rr, "ffmpeg").Resolve(context.Background(), "in.mkv", "", dest)
	require.NoError(t, err)

	joined := strings.Join(rr.args, " ")
	assert.Contains(t, joined, "-ss 1 -i in.mkv -frames:v 1 -q:v 2 "+dest)
}

func TestTempPath_Unique(t *testing.T) {
	dir := t.TempDir()
	a, b := TempPath(dir), TempPath(dir)
	assert.NotEqual(t, a, b)
	assert.Equal(t, dir, filepath.Dir(a))
	assert.True(t, strings.HasPrefix(filepath.Base(a), "convertav1-"))
	assert.Equal(t, ".jpg", filepath.Ext(a))
}

func TestNormalize(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.jpg")
	require.NoError(t, imaging.Save(imaging.New(2000, 1000, color.White), big))

	changed, err := Normalize(big, 500)
	require.NoError(t, err)
	assert.True(t, changed)

	img, err := imaging.Open(big)
	require.NoError(t, err)
	assert.Equal(t, 500, img.Bounds().Dx())
	assert.Equal(t, 250, img.Bounds().Dy())

	changed, err = Normalize(big, 500)
	require.NoError(t, err)
	assert.False(t, changed, "already within bounds")

	changed, err = Normalize(big, 0)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestNormalize_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err := Normalize(path, 100)
	assert.Error(t, err)
}
