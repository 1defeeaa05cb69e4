package render

import (
	"regexp"
	"strings"
)

// requiredPackage ties a package to the macros that need it. A package counts as
// declared when any of its providers is declared.
type requiredPackage struct {
	name      string
	providers []string
	triggers  []string
	shorthand bool
}

// Injection order is also the order of the inserted lines.
var requiredPackages = []requiredPackage{
	{
		name:      "amsmath",
		providers: []string{"amsmath", "mathtools"},
		triggers:  []string{`\begin{split}`, `\begin{align}`, `\begin{align*}`, `\text{`},
	},
	{
		name:      "amssymb",
		providers: []string{"amssymb", "amsfonts"},
		triggers:  []string{`\mathbb`},
		shorthand: true,
	},
	{
		name:      "graphicx",
		providers: []string{"graphicx"},
		triggers:  []string{`\includegraphics`},
	},
	{
		name:      "hyperref",
		providers: []string{"hyperref"},
		triggers:  []string{`\href`, `\url`},
	},
}

// shorthandSets maps number-set shorthands to their long form.
var shorthandSets = map[byte]string{
	'R': `\mathbb{R}`,
	'N': `\mathbb{N}`,
	'Z': `\mathbb{Z}`,
	'Q': `\mathbb{Q}`,
	'C': `\mathbb{C}`,
}

var (
	reUsePackage     = regexp.MustCompile(`^\\usepackage(\[[^\]]*\])?\{([^}]+)\}`)
	reDocumentClass  = regexp.MustCompile(`\\documentclass[^\n]*\n`)
	fenceLanguageSet = []string{"latex", "tex"}
)

// maxSanitizePasses bounds the fixpoint loop. Every pass either shrinks the text
// or declares a missing package, so real input settles in two passes.
const maxSanitizePasses = 8

// Sanitize repairs the structural mistakes models commonly make in LaTeX source.
// It never fails; input it cannot improve is returned unchanged. Passes repeat
// until the text stops changing so that Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(source string) string {
	s := source
	for range maxSanitizePasses {
		next := sanitizePass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// sanitizePass applies each repair once. Later steps rely on fences already
// being gone.
func sanitizePass(s string) string {
	s = stripFences(s)
	s = injectPackages(s)
	s = expandShorthands(s)
	return dedupePackages(s)
}

// stripFences removes markdown code fences wrapped around the document, repeating
// until no fence remains at either end.
func stripFences(s string) string {
	for {
		next := stripFenceOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripFenceOnce(s string) string {
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		for _, lang := range fenceLanguageSet {
			if after, found := strings.CutPrefix(rest, lang); found {
				rest = after
				break
			}
		}
		s = strings.TrimLeft(rest, " \t\r\n")
	}
	trimmed := strings.TrimRight(s, " \t\r\n")
	if before, ok := strings.CutSuffix(trimmed, "```"); ok {
		s = strings.TrimRight(before, " \t\r\n")
	}
	return s
}

// declaredPackages returns every package named by a \usepackage line.
func declaredPackages(s string) map[string]bool {
	declared := map[string]bool{}
	for _, line := range strings.Split(s, "\n") {
		for _, name := range packagesOnLine(line) {
			declared[name] = true
		}
	}
	return declared
}

// packagesOnLine parses a \usepackage declaration, ignoring bracketed options.
// It returns nil for any other line.
func packagesOnLine(line string) []string {
	m := reUsePackage.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return nil
	}
	var names []string
	for _, name := range strings.Split(m[2], ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func injectPackages(s string) string {
	loc := reDocumentClass.FindStringIndex(s)
	if loc == nil {
		return s
	}

	declared := declaredPackages(s)
	var inject strings.Builder
	for _, pkg := range requiredPackages {
		if isDeclared(declared, pkg.providers) || !isTriggered(s, pkg) {
			continue
		}
		inject.WriteString(`\usepackage{` + pkg.name + "}\n")
	}
	if inject.Len() == 0 {
		return s
	}
	return s[:loc[1]] + inject.String() + s[loc[1]:]
}

func isDeclared(declared map[string]bool, providers []string) bool {
	for _, p := range providers {
		if declared[p] {
			return true
		}
	}
	return false
}

func isTriggered(s string, pkg requiredPackage) bool {
	for _, trigger := range pkg.triggers {
		if strings.Contains(s, trigger) {
			return true
		}
	}
	// Shorthands become \mathbb after expansion, so they need amssymb too.
	return pkg.shorthand && hasShorthand(s)
}

func hasShorthand(s string) bool {
	return expandShorthands(s) != s
}

// expandShorthands rewrites \R, \N, \Z, \Q and \C into \mathbb form when the
// shorthand is not followed by a letter. An escaped backslash (\\) is skipped.
func expandShorthands(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		if next == '\\' {
			b.WriteString(`\\`)
			i++
			continue
		}
		long, ok := shorthandSets[next]
		if ok && (i+2 >= len(s) || !isLetter(s[i+2])) {
			b.WriteString(long)
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// dedupePackages drops \usepackage lines whose packages were all declared
// earlier. The first declaration wins, including its options.
func dedupePackages(s string) string {
	lines := strings.Split(s, "\n")
	seen := map[string]bool{}
	kept := lines[:0]
	for _, line := range lines {
		names := packagesOnLine(line)
		if len(names) > 0 {
			fresh := false
			for _, name := range names {
				if !seen[name] {
					fresh = true
					seen[name] = true
				}
			}
			if !fresh {
				continue
			}
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
