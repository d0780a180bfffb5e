package models

// Interaction is one logged request/response row
type Interaction struct {
	ID            int64   `db:"id" json:"id"`
	QueryText     string  `db:"query_text" json:"query_text"`
	Division      string  `db:"division" json:"division"`
	Response      string  `db:"response" json:"response"`
	Timestamp     string  `db:"timestamp" json:"timestamp"`
	SessionID     string  `db:"session_id" json:"session_id"`
	ResponseTime  float64 `db:"response_time" json:"response_time"`
	QueryType     string  `db:"query_type" json:"query_type"`
	APIUsed       string  `db:"api_used" json:"api_used"`
	TokensUsed    int     `db:"tokens_used" json:"tokens_used"`
	RuleReference *string `db:"rule_reference" json:"rule_reference,omitempty"`
	ThumbsUp      *bool   `db:"thumbs_up" json:"thumbs_up,omitempty"`
	ThumbsDown    *bool   `db:"thumbs_down" json:"thumbs_down,omitempty"`
	FeedbackText  *string `db:"feedback_text" json:"feedback_text,omitempty"`
}
