package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"llmpoold/internal/common/fsutil"
	"llmpoold/pkg/types"
)

// LoadDir scans a directory for worker definition files (*.yaml, *.yml,
// *.json, *.toml), one WorkerSpec per file, sorted by filename. A spec
// without a name is named after its file.
func LoadDir(dir string) ([]types.WorkerSpec, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !fsutil.SupportedExt(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	specs := make([]types.WorkerSpec, 0, len(names))
	for _, name := range names {
		var spec types.WorkerSpec
		if err := fsutil.DecodeFile(filepath.Join(abs, name), &spec); err != nil {
			return nil, fmt.Errorf("worker file %s: %w", name, err)
		}
		if strings.TrimSpace(spec.Backend) == "" {
			return nil, fmt.Errorf("worker file %s: backend is required", name)
		}
		if spec.Name == "" {
			spec.Name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
