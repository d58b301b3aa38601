package query

import "time"

// #region source
// Source is one provenance entry in an answer, derived from a retained
// chunk's metadata. The optional legal fields are filled when present.
type Source struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	SourceType    string  `json:"source_type"`
	Similarity    float64 `json:"similarity_score"`
	LawNumber     string  `json:"law_number,omitempty"`
	ArticleNumber string  `json:"article_number,omitempty"`
	Court         string  `json:"court,omitempty"`
	Date          string  `json:"date,omitempty"`
}

// #endregion source

// #region answer-package
// AnswerPackage is the output of one query-processing call.
type AnswerPackage struct {
	Answer             string        `json:"answer"`
	Sources            []Source      `json:"sources"`
	QueryType          string        `json:"query_type"`
	ProcessingTime     time.Duration `json:"processing_time"`
	RetrievedDocsCount int           `json:"retrieved_docs_count"`
	TotalDocsFound     int           `json:"total_docs_found"`
}

// #endregion answer-package
