package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
	domsvc "FinTrend/internal/domain/service"
)

// ExtractSeries selects column name from ds and drops missing entries
// (nil, NaN, ±Inf), keeping the relative order of what remains.
// An all-missing column yields an empty, non-nil series.
func ExtractSeries(ds *models.Dataset, name string) (models.Series, error) {
	if ds == nil {
		return nil, &domsvc.ExtractionError{Name: name, Err: domsvc.ErrSeriesNotFound}
	}
	col, ok := ds.Column(name)
	if !ok {
		return nil, &domsvc.ExtractionError{Name: name, Err: domsvc.ErrSeriesNotFound}
	}
	if len(ds.Index) > 0 && len(col.Values) > len(ds.Index) {
		return nil, &domsvc.ExtractionError{
			Name: name,
			Err:  fmt.Errorf("%w: %d values for index of %d", domsvc.ErrSeriesMisaligned, len(col.Values), len(ds.Index)),
		}
	}
	out := make(models.Series, 0, len(col.Values))
	for _, v := range col.Values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}

// Extractor adapts ExtractSeries to domsvc.SeriesExtractor.
type Extractor struct{}

func (Extractor) Extract(ds *models.Dataset, name string) (models.Series, error) {
	return ExtractSeries(ds, name)
}

var _ domsvc.SeriesExtractor = Extractor{}

// PivotCloses builds a dataset with one column per symbol (in the given
// order) holding close prices aligned on the union of candle buckets.
// Buckets where a symbol has no candle become missing values.
func PivotCloses(symbols []string, candles map[string][]models.Candle, tf string) *models.Dataset {
	step := TimeframeDuration(tf)

	seen := make(map[time.Time]struct{})
	bySymbol := make(map[string]map[time.Time]float64, len(symbols))
	for _, sym := range symbols {
		m := make(map[time.Time]float64, len(candles[sym]))
		for _, c := range candles[sym] {
			b := c.Bucket.UTC().Truncate(step)
			m[b] = c.Close
			seen[b] = struct{}{}
		}
		bySymbol[sym] = m
	}

	index := make([]time.Time, 0, len(seen))
	for b := range seen {
		index = append(index, b)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	ds := &models.Dataset{Index: index, Columns: make([]models.Column, 0, len(symbols))}
	for _, sym := range symbols {
		values := make([]*float64, len(index))
		m := bySymbol[sym]
		for i, b := range index {
			if v, ok := m[b]; ok {
				values[i] = models.Float(v)
			}
		}
		ds.Columns = append(ds.Columns, models.Column{Name: sym, Values: values})
	}
	return ds
}

// TimeframeDuration maps a candle timeframe to its bucket width.
func TimeframeDuration(tf string) time.Duration {
	return domrepo.Timeframe(tf).Step()
}
