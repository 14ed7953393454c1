package service

import (
	"regexp"
	"strings"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
)

var (
	mainHeadingRe = regexp.MustCompile(`(?m)^#[ \t]+\S`)
	subHeadingRe  = regexp.MustCompile(`(?m)^##[ \t]+\S`)
	bulletRe      = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+\S`)
	numberedRe    = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+\S`)
	boldRe        = regexp.MustCompile(`\*\*[^*\n]+\*\*|__[^_\n]+__`)
	fencedBlockRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe  = regexp.MustCompile("`[^`\n]+`")
	formulaRe     = regexp.MustCompile(`\[[^\[\]\n]*[=+\-*/^<>][^\[\]\n]*\]`)
)

// FormattingScore is the structural completeness of an answer, 0..100.
type FormattingScore struct {
	Score   int                      `json:"score"`
	Details domain.FormattingDetails `json:"details"`
}

// AnalyzeFormatting scores the Markdown structure of text. It looks only at
// which markers are present, never at content.
func AnalyzeFormatting(text string) FormattingScore {
	if strings.TrimSpace(text) == "" {
		return FormattingScore{}
	}

	withoutFences := fencedBlockRe.ReplaceAllString(text, "")

	d := domain.FormattingDetails{
		MainHeadingCount: len(mainHeadingRe.FindAllStringIndex(withoutFences, -1)),
		SubHeadingCount:  len(subHeadingRe.FindAllStringIndex(withoutFences, -1)),
		BulletList:       bulletRe.MatchString(withoutFences),
		NumberedList:     numberedRe.MatchString(withoutFences),
		Bold:             boldRe.MatchString(withoutFences),
		CodeBlock:        fencedBlockRe.MatchString(text),
		InlineCode:       inlineCodeRe.MatchString(withoutFences),
		Formula:          formulaRe.MatchString(withoutFences),
	}
	d.MainHeading = d.MainHeadingCount > 0
	d.SubHeadings = d.SubHeadingCount > 0

	score := 0
	add := func(ok bool, points int) {
		if ok {
			score += points
		}
	}
	add(d.MainHeading, 15)
	add(d.SubHeadings, 15)
	add(d.BulletList, 10)
	add(d.NumberedList, 10)
	add(d.Bold, 10)
	add(d.CodeBlock, 5)
	add(d.InlineCode, 5)
	add(d.Formula, 5)
	add(d.MainHeadingCount >= 1, 5)
	add(d.SubHeadingCount >= 2, 10)

	if score > 100 {
		score = 100
	}
	return FormattingScore{Score: score, Details: d}
}
