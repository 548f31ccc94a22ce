package models

import "time"

// SentimentSample is one raw reading from a sentiment source.
type SentimentSample struct {
	Score     float64 // [0,100]
	Weight    float64
	Source    string
	Timestamp time.Time
}

// SentimentSnapshot is the blended sentiment picture for an instrument at
// a point in time. Latest AsOf wins on reads.
type SentimentSnapshot struct {
	Symbol     string
	AsOf       time.Time
	Score      float64 // [0,100]
	Confidence float64 // [0,100]
}
