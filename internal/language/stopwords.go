package language

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed stopwords
var embedded embed.FS

// ErrNoStopwords reports a language without a readable stopword list.
var ErrNoStopwords = errors.New("no stopword list")

// Stopwords returns the stopword list for a language. Lists are read from
// dir/<language> (one word per line, the nltk corpus layout). When dir is
// empty or has no file for the language, the built-in list is used if one
// exists.
func Stopwords(code, dir string) ([]string, error) {
	e := lookup(code)
	if e == nil {
		return nil, fmt.Errorf("%w: unknown language %q", ErrNoStopwords, code)
	}
	if dir != "" {
		f, err := os.Open(filepath.Join(dir, e.word))
		switch {
		case err == nil:
			defer f.Close()
			return readWords(f)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("open stopwords: %w", err)
		}
	}
	data, err := embedded.ReadFile("stopwords/" + e.word)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoStopwords, e.word)
	}
	return readWords(bytes.NewReader(data))
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stopwords: %w", err)
	}
	return words, nil
}
