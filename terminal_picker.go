package ocrworker

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
)

// TerminalPicker is the file and folder dialog of the terminal surface. The
// user either types a path or a fuzzy query that is matched against the
// entries of the query's directory. An empty answer cancels.
type TerminalPicker struct {
	in         *bufio.Reader
	out        io.Writer
	MaxMatches int
}

// NewTerminalPicker shares in with the caller so no input is buffered away
func NewTerminalPicker(in *bufio.Reader, out io.Writer) *TerminalPicker {
	return &TerminalPicker{in: in, out: out, MaxMatches: 10}
}

func (p *TerminalPicker) Pick(req PickRequest) (string, bool, error) {
	fmt.Fprintf(p.out, "%s", req.Title)
	if req.Current != "" {
		fmt.Fprintf(p.out, " [current: %s]", req.Current)
	}
	fmt.Fprint(p.out, "\n  path or search (empty cancels): ")

	line, err := readLine(p.in)
	if err != nil && err != io.EOF {
		return "", false, err
	}
	if line == "" {
		return "", false, nil
	}
	path, err := expandHome(line)
	if err != nil {
		return "", false, err
	}

	switch req.Kind {
	case PickDirectory:
		if isDir(path) {
			return path, true, nil
		}
		return p.choose(req, path)
	case PickOpenFile:
		if isFile(path) && matchesPatterns(path, req.Patterns) {
			return path, true, nil
		}
		return p.choose(req, path)
	case PickSaveFile:
		if isDir(path) {
			fmt.Fprintf(p.out, "  %s is a directory\n", path)
			return "", false, nil
		}
		return path, true, nil
	}
	return "", false, fmt.Errorf("unknown picker kind %d", req.Kind)
}

// choose lists the entries next to query that fuzzy match its base name and
// lets the user pick one by number
func (p *TerminalPicker) choose(req PickRequest, query string) (string, bool, error) {
	dir, pattern := query, ""
	if !isDir(query) {
		dir, pattern = filepath.Split(query)
	}
	if dir == "" {
		dir = "."
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(p.out, "  %s: no such directory\n", dir)
		return "", false, nil
	}
	var names []string
	for _, entry := range entries {
		if req.Kind == PickDirectory && entry.IsDir() {
			names = append(names, entry.Name())
		}
		if req.Kind == PickOpenFile && !entry.IsDir() && matchesPatterns(entry.Name(), req.Patterns) {
			names = append(names, entry.Name())
		}
	}

	var candidates []string
	if pattern == "" {
		candidates = names
	} else {
		for _, match := range fuzzy.Find(pattern, names) {
			candidates = append(candidates, match.Str)
		}
	}
	if len(candidates) == 0 {
		fmt.Fprintf(p.out, "  nothing in %s matches %q\n", dir, pattern)
		return "", false, nil
	}
	if p.MaxMatches > 0 && len(candidates) > p.MaxMatches {
		candidates = candidates[:p.MaxMatches]
	}

	for i, candidate := range candidates {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, filepath.Join(dir, candidate))
	}
	fmt.Fprint(p.out, "  choose a number (empty cancels): ")
	line, err := readLine(p.in)
	if err != nil && err != io.EOF {
		return "", false, err
	}
	if line == "" {
		return "", false, nil
	}
	choice, err := strconv.Atoi(line)
	if err != nil || choice < 1 || choice > len(candidates) {
		fmt.Fprintf(p.out, "  choice must be between 1 and %d\n", len(candidates))
		return "", false, nil
	}
	return filepath.Join(dir, candidates[choice-1]), true, nil
}

// readLine returns the next trimmed line; a final line without newline is
// still returned and EOF only reported when nothing was read
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimSpace(line), err
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

func matchesPatterns(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	base := strings.ToLower(filepath.Base(path))
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
