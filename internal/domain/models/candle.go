package models

import "time"

// Candle is an OHLCV bucket as stored by the ingestion side in ClickHouse.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
