package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// RegionSentinel prefixes a context string that carries region grounding
// data as JSON.
const RegionSentinel = "STRICT_REGION_MODE::"

type PromptMode string

const (
	ModeRegion   PromptMode = "region"
	ModeAdaptive PromptMode = "adaptive"
)

type Register string

const (
	RegisterFull         Register = "full"
	RegisterCodeSwitched Register = "code-switched"
)

type QueryClass string

const (
	ClassConcept QueryClass = "concept"
	ClassCoding  QueryClass = "coding"
)

// RegionGrounding is what the player knows about the highlighted region.
type RegionGrounding struct {
	Transcript    string `json:"transcript"`
	Timestamp     string `json:"timestamp"`
	CourseContext string `json:"courseContext"`
}

type PromptInput struct {
	Query        string
	Context      string
	SelectedText string
	Language     string
	DisplayName  string
	Vision       bool
}

// Prompt is the fully resolved prompt for one request.
type Prompt struct {
	Mode        PromptMode
	Register    Register
	Class       QueryClass
	CodeAllowed bool
	Grounding   RegionGrounding
	System      string
	User        string
}

type strategyKey struct {
	mode     PromptMode
	register Register
	class    QueryClass
}

type strategy struct {
	persona   string
	structure string
	codeRule  string
}

const (
	regionPersona = `You explain one highlighted region of a lecture to a student.
Do NOT greet the student, do NOT use their name, do NOT introduce yourself and do NOT make small talk.
Start directly with the explanation. Explain ONLY what is inside the highlighted region; ignore everything else on screen.
If the region cannot be read, say so in one sentence and stop.`

	adaptivePersona = `You are a patient, precise tutor helping a student with a doubt from their course.
Address the student as %s once at the start, then get straight to the point.`

	regionStructure = `Format:
# <what the region shows>
## What it shows
- one bullet per element inside the region
## Why it matters
Short paragraph tying the region to the lecture.`

	conceptStructure = `Format the answer in Markdown:
# <topic>
## Core idea
Two or three sentences.
## How it works
- bullets, one idea each
## Example
A concrete, everyday analogy or worked example.
## Key takeaways
1. numbered, at most four`

	codingStructure = `Format the answer in Markdown:
# <topic>
## Problem
One sentence restating what the student is trying to do.
## Approach
1. numbered steps
## Code
One fenced code block with a language tag.
## Explanation
- bullets walking through the important lines
## Common mistakes
- bullets`

	codeForbidden  = `Do not write any code unless the student explicitly asks for it.`
	codeOnRequest  = `The student asked for code: include exactly one short fenced code block with a language tag.`
	codeAllowed    = `Keep code minimal and runnable; explain every non-obvious line.`
	regionCodeRule = `If the region shows code, walk through it line by line; do not write new code.`
)

var strategies = map[strategyKey]strategy{
	{ModeRegion, RegisterFull, ClassConcept}:           {regionPersona, regionStructure, codeForbidden},
	{ModeRegion, RegisterFull, ClassCoding}:            {regionPersona, regionStructure, regionCodeRule},
	{ModeRegion, RegisterCodeSwitched, ClassConcept}:   {regionPersona, regionStructure, codeForbidden},
	{ModeRegion, RegisterCodeSwitched, ClassCoding}:    {regionPersona, regionStructure, regionCodeRule},
	{ModeAdaptive, RegisterFull, ClassConcept}:         {adaptivePersona, conceptStructure, codeForbidden},
	{ModeAdaptive, RegisterFull, ClassCoding}:          {adaptivePersona, codingStructure, codeAllowed},
	{ModeAdaptive, RegisterCodeSwitched, ClassConcept}: {adaptivePersona, conceptStructure, codeForbidden},
	{ModeAdaptive, RegisterCodeSwitched, ClassCoding}:  {adaptivePersona, codingStructure, codeAllowed},
}

// BuildPrompt selects the strategy for (mode, register, class) and renders
// it.
func BuildPrompt(in PromptInput) Prompt {
	prompt := Prompt{
		Mode:     ModeAdaptive,
		Register: RegisterFor(in.Language),
		Class:    ClassifyQuery(in.Query, in.SelectedText),
	}

	generalContext := in.Context
	if grounding, ok := ParseRegionContext(in.Context); ok {
		prompt.Mode = ModeRegion
		prompt.Grounding = grounding
		generalContext = ""
	}

	st := strategies[strategyKey{prompt.Mode, prompt.Register, prompt.Class}]

	codeRule := st.codeRule
	switch {
	case prompt.Mode == ModeAdaptive && prompt.Class == ClassCoding:
		prompt.CodeAllowed = true
	case prompt.Mode == ModeAdaptive && RequestsCode(in.Query):
		prompt.CodeAllowed = true
		codeRule = codeOnRequest
	}

	var sys strings.Builder
	if prompt.Mode == ModeAdaptive {
		sys.WriteString(fmt.Sprintf(st.persona, displayNameOrDefault(in.DisplayName)))
	} else {
		sys.WriteString(st.persona)
	}
	sys.WriteString("\n\n")
	sys.WriteString(languageRule(prompt.Register, in.Language))
	sys.WriteString("\n\n")
	sys.WriteString(st.structure)
	sys.WriteString("\n\n")
	sys.WriteString(codeRule)
	prompt.System = sys.String()

	prompt.User = renderUser(prompt, in, generalContext)
	return prompt
}

func renderUser(prompt Prompt, in PromptInput, generalContext string) string {
	var b strings.Builder
	if prompt.Mode == ModeRegion {
		g := prompt.Grounding
		if g.CourseContext != "" {
			fmt.Fprintf(&b, "Course: %s\n", g.CourseContext)
		}
		if g.Timestamp != "" {
			fmt.Fprintf(&b, "Timestamp: %s\n", g.Timestamp)
		}
		if g.Transcript != "" {
			fmt.Fprintf(&b, "Transcript around this moment:\n%s\n", g.Transcript)
		}
		if in.Vision {
			b.WriteString("The attached image is the highlighted region.\n")
		}
	} else {
		if generalContext != "" {
			fmt.Fprintf(&b, "Lesson context:\n%s\n", generalContext)
		}
		if in.Vision {
			b.WriteString("The attached image is the lesson material the student is looking at.\n")
		}
	}
	if in.SelectedText != "" {
		fmt.Fprintf(&b, "Selected text:\n%s\n", in.SelectedText)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", in.Query)
	return b.String()
}

// ParseRegionContext reports whether ctx selects region mode. Bad JSON after
// the sentinel still selects region mode, with empty grounding.
func ParseRegionContext(ctx string) (RegionGrounding, bool) {
	if !strings.HasPrefix(ctx, RegionSentinel) {
		return RegionGrounding{}, false
	}
	var g RegionGrounding
	if err := json.Unmarshal([]byte(strings.TrimPrefix(ctx, RegionSentinel)), &g); err != nil {
		return RegionGrounding{}, true
	}
	return g, true
}

// RegisterFor maps a requested language to a register. Only Hinglish gets the
// constrained code-switched register.
func RegisterFor(language string) Register {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "hinglish":
		return RegisterCodeSwitched
	default:
		return RegisterFull
	}
}

func languageRule(r Register, language string) string {
	if r == RegisterCodeSwitched {
		return `Language: Hinglish. Write conversational Hindi in Roman script and keep every technical term in English.
Never use Devanagari script. Never translate technical terms into Hindi.
Never write an English sentence followed by its Hindi translation, and avoid formal Hindi words such as "kripya", "avashyak" or "prashn".`
	}
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = "English"
	}
	return fmt.Sprintf("Language: respond entirely in %s. Keep standard technical terms as they are.", lang)
}

func displayNameOrDefault(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "the student"
	}
	return name
}

var codingKeywords = map[string]bool{
	"function": true, "functions": true, "syntax": true,
	"compile": true, "compiler": true, "error": true, "bug": true,
	"debug": true, "exception": true, "python": true, "java": true,
	"javascript": true, "typescript": true, "c++": true, "c#": true,
	"golang": true, "sql": true, "html": true, "css": true, "loop": true,
	"array": true, "variable": true, "algorithm": true, "implement": true,
	"implementation": true, "runtime": true, "api": true, "pointer": true,
	"struct": true, "recursion": true,
}

var codeRequestWords = map[string]bool{
	"code": true, "snippet": true, "program": true, "implementation": true,
}

var codeMarkers = []string{"{", "};", "=>", "def ", "#include", "import ", "()", "!=", "=="}

// ClassifyQuery labels a query "coding" when it or the selected text reads as
// programming, "concept" otherwise.
func ClassifyQuery(query, selectedText string) QueryClass {
	for _, w := range tokenize(query + " " + selectedText) {
		if codingKeywords[w] {
			return ClassCoding
		}
	}
	for _, m := range codeMarkers {
		if strings.Contains(selectedText, m) {
			return ClassCoding
		}
	}
	return ClassConcept
}

// RequestsCode reports an explicit request for code in the query.
func RequestsCode(query string) bool {
	for _, w := range tokenize(query) {
		if codeRequestWords[w] {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}
