package lawapi

// ChatTurn is one prior turn of the conversation sent back to the backend
// for context.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// QuestionRequest is the payload for the /ask endpoint.
type QuestionRequest struct {
	Question    string     `json:"question"`
	UseAdvanced bool       `json:"use_advanced"`
	ModelMode   string     `json:"model_mode"` // "fast" or "quality"
	ChatHistory []ChatTurn `json:"chat_history"`
}

// Source is a textual reference returned alongside an answer.
type Source struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// PDFSource describes one cited provision and the PDF backing it.
// PageNum is optional; the backend does not always know the page.
type PDFSource struct {
	DomainID      string `json:"domain_id,omitempty"`
	JSONFile      string `json:"json_file,omitempty"`
	PDFFile       string `json:"pdf_file"`
	ArticleNum    string `json:"article_num,omitempty"`
	PageNum       int    `json:"page_num,omitempty"`
	HighlightText string `json:"highlight_text,omitempty"`
	Content       string `json:"content,omitempty"`
}

// TimingInfo is the backend's optional timing breakdown.
type TimingInfo struct {
	TotalMs      int64  `json:"total_ms"`
	SearchMs     int64  `json:"search_ms"`
	GenerationMs int64  `json:"generation_ms"`
	Status       string `json:"status,omitempty"`
}

// AnswerResponse is the backend's reply to a question.
type AnswerResponse struct {
	Answer       string      `json:"answer"`
	Sources      []Source    `json:"sources"`
	PDFSources   []PDFSource `json:"pdf_sources"`
	SearchMethod string      `json:"search_method,omitempty"`
	Timing       *TimingInfo `json:"timing,omitempty"`
}

// FeedbackRequest reports a thumbs up/down on an answer.
type FeedbackRequest struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Context []Source `json:"context"`
	Status  string   `json:"status"` // "like" or "dislike"
	Comment string   `json:"comment,omitempty"`
}

// FeedbackResponse acknowledges a feedback submission.
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// DocumentEnvelope is the base64 form of a served PDF. Some deployments
// return raw bytes with a PDF content type instead; the client handles both.
type DocumentEnvelope struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
	Size     int    `json:"size,omitempty"`
}

// FindPageResponse is the best-effort page lookup result.
type FindPageResponse struct {
	Found   bool `json:"found"`
	PageNum int  `json:"page_num"`
}
