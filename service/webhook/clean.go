package webhook

import (
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
)

// Edition noise that adds nothing to a video search. A parenthesised or
// dash-suffixed segment made mostly of these words is dropped.
var guffWords = []string{
	"acoustic", "bonus", "deluxe", "demo", "edit", "explicit", "extended",
	"instrumental", "live", "mix", "mono", "official", "original", "radio",
	"remaster", "remastered", "remix", "remixed", "reprise", "single",
	"stereo", "version",
}

// QueryCleaner strips featuring credits and edition guff from track titles
// before they are embedded in a search link.
type QueryCleaner struct {
	featExpr     *regexp2.Regexp
	enclosedExpr *regexp2.Regexp
	dashExpr     *regexp2.Regexp
	yearExpr     *regexp2.Regexp
}

func NewQueryCleaner() *QueryCleaner {
	return &QueryCleaner{
		featExpr:     regexp2.MustCompile(`(?i)(?<title>.+?)\s+?[\[\(]?(?:feat(?:uring)?|ft)\b\.?\s*.+`, 0),
		enclosedExpr: regexp2.MustCompile(`(?i)(?<title>.+?)\s+(?<enclosed>\(.+\)|\[.+\])$`, 0),
		dashExpr:     regexp2.MustCompile(`(?i)(?<title>.+?)\s+?[–—-]\s(?<dash>.*)`, 0),
		yearExpr:     regexp2.MustCompile(`(20[0-9]{2}|19[0-9]{2})`, 0),
	}
}

// Clean returns the title with guff segments removed, or the input unchanged
// when nothing looks safely removable.
func (c *QueryCleaner) Clean(title string) string {
	title = strings.TrimSpace(title)
	if !balancedBrackets(title) {
		return title
	}

	if match, _ := c.featExpr.FindStringMatch(title); match != nil {
		title = strings.TrimSpace(match.GroupByName("title").String())
	}

	if match, _ := c.enclosedExpr.FindStringMatch(title); match != nil {
		enclosed := match.GroupByName("enclosed").String()
		if c.isLikelyGuff(strings.Trim(enclosed, "()[]")) {
			title = strings.TrimSpace(match.GroupByName("title").String())
		}
	}

	if match, _ := c.dashExpr.FindStringMatch(title); match != nil {
		if c.isLikelyGuff(match.GroupByName("dash").String()) {
			title = strings.TrimSpace(match.GroupByName("title").String())
		}
	}

	return title
}

// isLikelyGuff reports whether more of the segment is edition noise than
// real words.
func (c *QueryCleaner) isLikelyGuff(segment string) bool {
	seg := strings.ToLower(segment)
	before := len([]rune(seg))

	for _, guff := range guffWords {
		seg = strings.ReplaceAll(seg, guff, "")
	}
	seg, _ = c.yearExpr.Replace(seg, "", -1, -1)

	guffChars := before - len([]rune(seg))
	letters := 0
	for _, r := range seg {
		if unicode.IsLetter(r) {
			letters++
		}
	}

	return guffChars > letters
}

func balancedBrackets(text string) bool {
	pairs := []struct {
		open, close string
	}{
		{"(", ")"}, {"[", "]"},
	}
	for _, p := range pairs {
		if strings.Count(text, p.open) != strings.Count(text, p.close) {
			return false
		}
	}
	return true
}
