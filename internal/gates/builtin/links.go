package builtin

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"docpilot/internal/gates"
)

var markdownLink = regexp.MustCompile(`!?\[[^\]]*\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)

type linksGate struct {
	dir string
}

func buildLinks(opts map[string]any) (gates.Gate, error) {
	dir, err := scanDirOption(opts)
	if err != nil {
		return nil, err
	}
	return &linksGate{dir: dir}, nil
}

func (g *linksGate) Name() string {
	return GateLinks
}

func (g *linksGate) Check(ctx context.Context, runDir string, _ gates.Profile) (gates.Result, error) {
	files, err := walkFiles(ctx, runDir, g.dir, markdownExts)
	if err != nil {
		return gates.Result{}, err
	}
	var issues []gates.Issue
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(runDir, filepath.FromSlash(rel)))
		if err != nil {
			return gates.Result{}, err
		}
		for _, link := range scanLinks(data) {
			target, ok := localTarget(link.target)
			if !ok {
				continue
			}
			resolved := resolveLink(rel, g.dir, target)
			if _, err := os.Stat(filepath.Join(runDir, filepath.FromSlash(resolved))); err == nil {
				continue
			}
			issues = append(issues, gates.Issue{
				Gate:      GateLinks,
				Severity:  gates.SeverityBlocker,
				Message:   fmt.Sprintf("link target %q does not exist", link.target),
				Location:  &gates.Location{Path: rel, Line: link.line},
				Status:    gates.StatusOpen,
				ErrorCode: "broken_link",
			})
		}
	}
	return gates.Result{Passed: len(issues) == 0, Issues: issues}, nil
}

type foundLink struct {
	target string
	line   int
}

// scanLinks returns inline markdown link targets outside fenced code blocks.
func scanLinks(data []byte) []foundLink {
	var links []foundLink
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	inFence := false
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(text), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		for _, match := range markdownLink.FindAllStringSubmatch(text, -1) {
			links = append(links, foundLink{target: match[1], line: line})
		}
	}
	return links
}

// localTarget strips fragment and query from a relative link; external and
// anchor-only links are skipped.
func localTarget(target string) (string, bool) {
	if target == "" || strings.HasPrefix(target, "#") {
		return "", false
	}
	if strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:") || strings.HasPrefix(target, "tel:") {
		return "", false
	}
	if cut := strings.IndexAny(target, "#?"); cut >= 0 {
		target = target[:cut]
	}
	if target == "" {
		return "", false
	}
	return target, true
}

// resolveLink maps a link found in rel to a run-relative path. Absolute links
// are rooted at the scanned directory.
func resolveLink(rel, scanDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Join(filepath.ToSlash(scanDir), target)
	}
	return path.Join(path.Dir(rel), target)
}
