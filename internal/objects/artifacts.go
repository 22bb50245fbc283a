package objects

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"vidresume/internal/services"
)

// Artifacts are the model files an object classifier is initialized from.
type Artifacts struct {
	Weights string
	Config  string
	Names   string
}

// Validate checks that every artifact is a readable, non-empty file.
func (a Artifacts) Validate() error {
	for _, f := range []struct{ field, path string }{
		{"weights", a.Weights},
		{"config", a.Config},
		{"names", a.Names},
	} {
		if strings.TrimSpace(f.path) == "" {
			return services.Wrap(services.ErrDetectorUnavailable, "objects", "artifacts", fmt.Sprintf("%s path not configured", f.field), nil)
		}
		info, err := os.Stat(f.path)
		if err != nil {
			return services.Wrap(services.ErrDetectorUnavailable, "objects", "artifacts", fmt.Sprintf("%s file unavailable", f.field), err)
		}
		if info.IsDir() || info.Size() == 0 {
			return services.Wrap(services.ErrDetectorUnavailable, "objects", "artifacts", fmt.Sprintf("%s file %q is empty or a directory", f.field, f.path), nil)
		}
	}
	return nil
}

// LoadNames reads a class names file with one label per line.
func LoadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrDetectorUnavailable, "objects", "names", "open names file", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrDetectorUnavailable, "objects", "names", "read names file", err)
	}
	if len(names) == 0 {
		return nil, services.Wrap(services.ErrDetectorUnavailable, "objects", "names", fmt.Sprintf("names file %q has no labels", path), nil)
	}
	return names, nil
}
