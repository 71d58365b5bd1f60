package recognition

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"voice-phone/internal/domain"
)

const interimPrefix = "~"

// FileSource replays transcript scripts as recognition sessions. Each
// session consumes the next .txt file of the directory: every line is a
// final result, lines starting with "~" are interim results. The session
// ends after the last line and the file is renamed with a .processed
// suffix.
type FileSource struct {
	fs           afero.Fs
	dir          string
	pollInterval time.Duration
	lineDelay    time.Duration
	logger       *slog.Logger
	events       chan domain.RecognitionEvent

	runner sessionRunner

	mu        sync.Mutex
	processed map[string]bool
}

func NewFileSource(fs afero.Fs, dir string, lineDelay time.Duration, logger *slog.Logger) *FileSource {
	return &FileSource{
		fs:           fs,
		dir:          dir,
		pollInterval: 500 * time.Millisecond,
		lineDelay:    lineDelay,
		logger:       logger,
		events:       make(chan domain.RecognitionEvent, 16),
		processed:    make(map[string]bool),
	}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(ctx context.Context) error {
	if err := f.fs.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating transcript dir: %w", err)
	}
	_, err := f.runner.start(ctx, f.runSession, func() {
		f.send(ctx, domain.EndEvent())
	})
	return err
}

func (f *FileSource) Stop() error {
	f.runner.stop()
	return nil
}

func (f *FileSource) Events() <-chan domain.RecognitionEvent {
	return f.events
}

// runSession replays one script. The runner sends the end event once it
// returns, whether the script ran out or the session was stopped.
func (f *FileSource) runSession(ctx context.Context) {
	path, err := f.waitForScript(ctx)
	if err != nil {
		return
	}

	lines, err := f.readScript(path)
	if err != nil {
		f.logger.Error("reading transcript script", "path", path, "error", err)
		f.send(ctx, domain.ErrorEvent(domain.ErrorAudioCapture, err.Error()))
		return
	}
	f.logger.Info("replaying transcript script", "path", path, "lines", len(lines))

	var finals []domain.Segment
	for _, line := range lines {
		if ctx.Err() != nil {
			return
		}

		seg := domain.Segment{Transcript: line, IsFinal: true}
		if rest, ok := strings.CutPrefix(line, interimPrefix); ok {
			seg = domain.Segment{Transcript: strings.TrimSpace(rest)}
		}

		results := append(append([]domain.Segment(nil), finals...), seg)
		batch := domain.ResultBatch{ResultIndex: len(finals), Results: results}
		if seg.IsFinal {
			finals = append(finals, seg)
		}

		if !f.send(ctx, domain.ResultEvent(batch)) {
			return
		}
		if f.lineDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.lineDelay):
			}
		}
	}
}

func (f *FileSource) send(ctx context.Context, ev domain.RecognitionEvent) bool {
	select {
	case f.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (f *FileSource) waitForScript(ctx context.Context) (string, error) {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		path, err := f.nextScript()
		if err != nil {
			f.logger.Warn("scanning transcript dir", "dir", f.dir, "error", err)
		}
		if path != "" {
			return path, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *FileSource) nextScript() (string, error) {
	entries, err := afero.ReadDir(f.fs, f.dir)
	if err != nil {
		return "", fmt.Errorf("reading dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}
		path := filepath.Join(f.dir, entry.Name())
		if f.processed[path] {
			continue
		}
		f.processed[path] = true
		return path, nil
	}
	return "", nil
}

// readScript loads the non-blank lines of path and marks it processed.
func (f *FileSource) readScript(path string) ([]string, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	scanErr := scanner.Err()
	file.Close()

	if err := f.fs.Rename(path, path+".processed"); err != nil {
		return nil, fmt.Errorf("marking %s processed: %w", path, err)
	}
	if scanErr != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, scanErr)
	}
	return lines, nil
}
