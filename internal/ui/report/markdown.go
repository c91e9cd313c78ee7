package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"warnboard/internal/core/errors"
)

type markerPair struct {
	name  string
	start string
	end   string
}

func markersFor(name string) (markerPair, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return markerPair{}, errors.New(errors.CodeInvalidArgument, "markdown marker must not be empty")
	}
	return markerPair{
		name:  name,
		start: "<!-- warnboard:" + name + ":start -->",
		end:   "<!-- warnboard:" + name + ":end -->",
	}, nil
}

// ReplaceBetweenMarkers swaps the text between the start and end markers of name. Each
// marker must occur exactly once, start first. The line ending of content is kept.
func ReplaceBetweenMarkers(content, name, replacement string) (string, error) {
	m, err := markersFor(name)
	if err != nil {
		return "", err
	}
	if strings.Count(content, m.start) != 1 || strings.Count(content, m.end) != 1 {
		return "", errors.Newf(errors.CodeInvalidArgument,
			"markdown marker %q must appear exactly once for start and end", m.name)
	}

	head, rest, _ := strings.Cut(content, m.start)
	_, tail, found := strings.Cut(rest, m.end)
	if !found {
		return "", errors.Newf(errors.CodeInvalidArgument, "end marker of %q precedes its start marker", m.name)
	}

	eol := "\n"
	if strings.Contains(content, "\r\n") {
		eol = "\r\n"
	}
	var b strings.Builder
	b.Grow(len(content) + len(replacement))
	b.WriteString(head)
	b.WriteString(m.start)
	b.WriteString(eol)
	b.WriteString(strings.TrimRight(replacement, "\r\n"))
	b.WriteString(eol)
	b.WriteString(m.end)
	b.WriteString(tail)
	return b.String(), nil
}

// InjectChart rewrites the marker block of filePath with body. The file keeps its
// permissions and is replaced in one rename.
func InjectChart(filePath, marker, body string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("stat markdown file %q: %w", filePath, err)
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read markdown file %q: %w", filePath, err)
	}
	next, err := ReplaceBetweenMarkers(string(content), marker, body)
	if err != nil {
		return errors.AddContext(err, "file", filePath)
	}
	return replaceFile(filePath, []byte(next), info.Mode().Perm())
}

func replaceFile(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".warnboard-inject-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %q: %w", tmp.Name(), err)
	}
	if err = tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %q: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %q: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace markdown file %q: %w", path, err)
	}
	return nil
}
