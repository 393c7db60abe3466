package builtin

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"docpilot/internal/gates"
)

var (
	scriptTag      = regexp.MustCompile(`(?i)<\s*script\b`)
	javascriptURL  = regexp.MustCompile(`(?i)\bjavascript:`)
	inlineHandler  = regexp.MustCompile(`(?i)<[a-z][^>]*\son[a-z]+\s*=`)
	insecureURL    = regexp.MustCompile(`http://[^\s)"'>\]]+`)
	secretPatterns = []secretPattern{
		{name: "aws access key", re: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
		{name: "private key", re: regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)},
		{name: "github token", re: regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`)},
		{name: "api key assignment", re: regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token|password)\b\s*[:=]\s*["']?[A-Za-z0-9_\-/+]{16,}`)},
	}
	defaultAllowedHTTPHosts = []string{"localhost", "127.0.0.1"}
	securityExts            = []string{".md", ".markdown", ".html", ".htm", ".mdx"}
)

type secretPattern struct {
	name string
	re   *regexp.Regexp
}

type securityGate struct {
	dir          string
	allowedHosts map[string]bool
}

func checkSecurityOptions(opts map[string]any, _ string) []string {
	problems := unknownKeys(opts, "dir", "allow_http_hosts")
	if _, err := scanDirOption(opts); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := stringListOption(opts, "allow_http_hosts", defaultAllowedHTTPHosts); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}

func buildSecurity(opts map[string]any) (gates.Gate, error) {
	dir, err := scanDirOption(opts)
	if err != nil {
		return nil, err
	}
	hosts, err := stringListOption(opts, "allow_http_hosts", defaultAllowedHTTPHosts)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(hosts))
	for _, host := range hosts {
		allowed[strings.ToLower(host)] = true
	}
	return &securityGate{dir: dir, allowedHosts: allowed}, nil
}

func (g *securityGate) Name() string {
	return GateSecurity
}

func (g *securityGate) Check(ctx context.Context, runDir string, profile gates.Profile) (gates.Result, error) {
	files, err := walkFiles(ctx, runDir, g.dir, securityExts)
	if err != nil {
		return gates.Result{}, err
	}
	var issues []gates.Issue
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(runDir, filepath.FromSlash(rel)))
		if err != nil {
			return gates.Result{}, err
		}
		issues = append(issues, g.scan(rel, data, profile)...)
	}
	return gates.Result{Passed: !anyAtLeast(issues, gates.SeverityError), Issues: issues}, nil
}

func (g *securityGate) scan(rel string, data []byte, profile gates.Profile) []gates.Issue {
	insecureSeverity := gates.SeverityWarn
	if profile.Strict {
		insecureSeverity = gates.SeverityError
	}
	var issues []gates.Issue
	add := func(line int, severity gates.Severity, code, message string) {
		issues = append(issues, gates.Issue{
			Gate:      GateSecurity,
			Severity:  severity,
			Message:   message,
			Location:  &gates.Location{Path: rel, Line: line},
			Status:    gates.StatusOpen,
			ErrorCode: code,
		})
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if scriptTag.MatchString(text) || javascriptURL.MatchString(text) || inlineHandler.MatchString(text) {
			add(line, gates.SeverityBlocker, "script_injection", "executable script content in generated page")
		}
		for _, pattern := range secretPatterns {
			if pattern.re.MatchString(text) {
				add(line, gates.SeverityBlocker, "secret_leak", fmt.Sprintf("possible %s in generated page", pattern.name))
				break
			}
		}
		for _, raw := range insecureURL.FindAllString(text, -1) {
			if g.allowed(raw) {
				continue
			}
			add(line, insecureSeverity, "insecure_link", fmt.Sprintf("insecure link %s", raw))
		}
	}
	return issues
}

func (g *securityGate) allowed(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return g.allowedHosts[strings.ToLower(parsed.Hostname())]
}
