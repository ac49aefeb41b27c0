package naming

import (
	"path/filepath"
	"strings"
)

// Suffix marks converted files.
const Suffix = "_av1"

// OutputPath returns <dir>/<stem>_av1.<container> for input. container is
// the extension without a dot ("mp4", "mkv").
func OutputPath(input, container string) string {
	dir := filepath.Dir(input)
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+Suffix+"."+strings.TrimPrefix(container, "."))
}

// IsOutputName reports whether path looks like something this tool
// produced, so directory scans can skip it.
func IsOutputName(path string) bool {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(strings.ToLower(stem), Suffix)
}
