package vecindex

// #region point
// Point is one vector entry with its text payload and flat metadata.
type Point struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]string
}

// #endregion point

// #region search-hit
// SearchHit is one nearest-neighbor result. Score is the raw similarity
// reported by the index (cosine, higher is closer).
type SearchHit struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float32
}

// #endregion search-hit

// #region stored-point
// StoredPoint is a point read back by id or scroll, without a score.
type StoredPoint struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// #endregion stored-point
