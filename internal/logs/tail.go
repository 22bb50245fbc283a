package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const maxLineBytes = 1024 * 1024

// TailOptions controls a Tail call. A negative Offset selects the last Limit
// lines; Limit <= 0 with a negative Offset only reports the end offset.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
	// Stage keeps only lines logged by that pipeline stage.
	Stage string
}

// TailResult carries matching lines and the offset to resume from.
type TailResult struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// Tail reads lines from the log file at path. A missing file yields an empty
// result at offset 0.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}
	match := StageFilter(opts.Stage)

	var result TailResult
	if opts.Offset < 0 {
		result, err = lastLines(path, opts.Limit, match)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			offset = info.Size()
		}
		result, err = readFrom(path, offset, match)
	}
	if err != nil {
		return result, err
	}
	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return waitForLines(ctx, path, result.Offset, opts.Wait, match)
	}
	return result, nil
}

// StageFilter matches lines from stage. JSON lines are matched on their
// "stage" or "component" field, console lines on the header columns. An empty
// stage matches everything.
func StageFilter(stage string) func(string) bool {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return func(string) bool { return true }
	}
	stageColumn := "] " + stage + " "
	componentColumn := "[" + stage + "]"
	return func(line string) bool {
		if strings.HasPrefix(line, "{") {
			var fields struct {
				Stage     string `json:"stage"`
				Component string `json:"component"`
			}
			if err := json.Unmarshal([]byte(line), &fields); err == nil {
				return fields.Stage == stage || fields.Component == stage
			}
		}
		return strings.Contains(line, stageColumn) || strings.Contains(line, componentColumn)
	}
}

func lastLines(path string, limit int, match func(string) bool) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return TailResult{}, fmt.Errorf("seek log file: %w", err)
		}
		return TailResult{Offset: end}, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	end, err := scan(file, func(line string) {
		if !match(line) {
			return
		}
		ring[next] = line
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return TailResult{}, err
	}

	lines := make([]string, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := range count {
		lines[i] = ring[(start+i)%limit]
	}
	return TailResult{Lines: lines, Offset: end}, nil
}

func readFrom(path string, offset int64, match func(string) bool) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	consumed, err := scan(file, func(line string) {
		if match(line) {
			lines = append(lines, line)
		}
	})
	if err != nil {
		return TailResult{Offset: offset}, err
	}
	return TailResult{Lines: lines, Offset: offset + consumed}, nil
}

// scan feeds complete lines to fn and returns the bytes consumed. A partial
// trailing line is left for the next read.
func scan(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		fn(strings.TrimRight(line, "\r\n"))
	}
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration, match func(string) bool) (TailResult, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("watch log dir: %w", err)
	}

	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	target := filepath.Clean(path)

	for {
		result, err := readFrom(path, offset, match)
		if err != nil || len(result.Lines) > 0 {
			return result, err
		}
		offset = result.Offset

		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-deadline.C:
			return TailResult{Offset: offset}, nil
		case event, ok := <-watcher.Events:
			if !ok {
				return TailResult{Offset: offset}, errors.New("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
		case err := <-watcher.Errors:
			if err != nil {
				return TailResult{Offset: offset}, fmt.Errorf("watch log file: %w", err)
			}
		}
	}
}
