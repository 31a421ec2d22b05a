package models

// PerfumeRow is a single row of the perfume dataset. Row position is the
// stable ID correlating dataset rows with index vectors.
type PerfumeRow struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Rating       float64 `json:"rating"`
	CombinedText string  `json:"combined_text"`
}

// RetrievedPerfume pairs a dataset row with its search distance
type RetrievedPerfume struct {
	Row      PerfumeRow `json:"row"`
	Distance float32    `json:"distance"`
}
