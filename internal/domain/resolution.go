package domain

// ResolutionSource says where an explanation came from.
type ResolutionSource string

const (
	SourceDoubtContent   ResolutionSource = "DOUBT_CACHE_CONTENT"
	SourceDoubtGlobal    ResolutionSource = "DOUBT_CACHE_GLOBAL"
	SourceKnowledgeGraph ResolutionSource = "KNOWLEDGE_GRAPH"
	SourceAI             ResolutionSource = "AI"
	SourceAIVision       ResolutionSource = "AI_VISION"
)

// CacheHit reports whether the explanation was served without calling the
// tutor.
func (s ResolutionSource) CacheHit() bool {
	switch s {
	case SourceDoubtContent, SourceDoubtGlobal, SourceKnowledgeGraph:
		return true
	}
	return false
}

// ContentTypeImage is the content type that can enable vision mode.
const ContentTypeImage = "image"

// ResolveRequest is one student question plus everything known about where
// it was asked.
type ResolveRequest struct {
	Query         string
	Context       string
	VisualContext bool
	ContentURL    string
	ContentType   string
	Language      string
	DisplayName   string
	SelectedText  string
	APIKey        string
	CourseID      string
	ContentID     string
}

// ComponentScore is one weighted term of a confidence score. Score is the
// unrounded contribution, Max the most it can contribute.
type ComponentScore struct {
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
	Max    float64 `json:"max"`
}

type ContextSignals struct {
	SelectedText  bool `json:"selected_text"`
	GeneralText   bool `json:"general_context"`
	VisualContext bool `json:"visual_context"`
}

// FormattingDetails records which structural markers an answer contains.
type FormattingDetails struct {
	MainHeading      bool `json:"main_heading"`
	SubHeadings      bool `json:"sub_headings"`
	BulletList       bool `json:"bullet_list"`
	NumberedList     bool `json:"numbered_list"`
	Bold             bool `json:"bold"`
	CodeBlock        bool `json:"code_block"`
	InlineCode       bool `json:"inline_code"`
	Formula          bool `json:"formula"`
	MainHeadingCount int  `json:"main_heading_count"`
	SubHeadingCount  int  `json:"sub_heading_count"`
}

type ConfidenceBreakdown struct {
	AI              ComponentScore    `json:"ai_confidence"`
	Context         ComponentScore    `json:"context_richness"`
	ResponseQuality ComponentScore    `json:"response_quality"`
	Formatting      ComponentScore    `json:"formatting"`
	VerifiedBonus   ComponentScore    `json:"verified_source_bonus"`
	Signals         ContextSignals    `json:"context_signals"`
	ModelConfidence float64           `json:"model_confidence"`
	ResponseLength  int               `json:"response_length"`
	VisionMode      bool              `json:"vision_mode"`
	ContentType     string            `json:"content_type,omitempty"`
	FormattingFlags FormattingDetails `json:"formatting_details"`
	FinalScore      int               `json:"final_score"`
	Reliability     string            `json:"reliability"`
}

type Resolution struct {
	Explanation         string               `json:"explanation"`
	Confidence          int                  `json:"confidence"`
	ConfidenceBreakdown *ConfidenceBreakdown `json:"confidence_breakdown,omitempty"`
	Source              ResolutionSource     `json:"source"`
}
