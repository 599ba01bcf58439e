package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinTrend/internal/domain/models"
	domsvc "FinTrend/internal/domain/service"
)

func TestExtractSeries_DropsMissingKeepsOrder(t *testing.T) {
	ds := &models.Dataset{Columns: []models.Column{{
		Name: "AAPL",
		Values: []*float64{
			models.Float(1), nil, models.Float(math.NaN()), models.Float(3),
			models.Float(math.Inf(1)), models.Float(2), models.Float(math.Inf(-1)),
		},
	}}}

	s, err := ExtractSeries(ds, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, models.Series{1, 3, 2}, s)
}

func TestExtractSeries_AllMissingIsEmptyNotError(t *testing.T) {
	ds := &models.Dataset{Columns: []models.Column{{Name: "GHOST", Values: []*float64{nil, nil}}}}

	s, err := ExtractSeries(ds, "GHOST")
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Empty(t, s)
}

func TestExtractSeries_UnknownColumn(t *testing.T) {
	ds := &models.Dataset{Columns: []models.Column{{Name: "AAPL"}}}

	_, err := ExtractSeries(ds, "MSFT")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domsvc.ErrSeriesNotFound))

	var ee *domsvc.ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "MSFT", ee.Name)

	_, err = ExtractSeries(nil, "MSFT")
	assert.Error(t, err)
}

func TestExtractSeries_DoesNotMutateInput(t *testing.T) {
	ds := &models.Dataset{Columns: []models.Column{{Name: "A", Values: []*float64{nil, models.Float(1)}}}}
	_, err := Extractor{}.Extract(ds, "A")
	require.NoError(t, err)
	assert.Len(t, ds.Columns[0].Values, 2)
	assert.Nil(t, ds.Columns[0].Values[0])
}

func TestPivotCloses_AlignsOnUnionOfBuckets(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	candles := map[string][]models.Candle{
		"AAPL": {
			{Bucket: t0, Close: 10},
			{Bucket: t0.Add(time.Minute), Close: 11},
			{Bucket: t0.Add(2 * time.Minute), Close: 12},
		},
		"MSFT": {
			{Bucket: t0.Add(2*time.Minute + 20*time.Second), Close: 300},
			{Bucket: t0, Close: 298},
		},
	}

	ds := PivotCloses([]string{"MSFT", "AAPL", "NONE"}, candles, "1m")

	require.Len(t, ds.Index, 3)
	assert.Equal(t, []string{"MSFT", "AAPL", "NONE"}, ds.Names())

	msft, _ := ds.Column("MSFT")
	require.Len(t, msft.Values, 3)
	assert.Equal(t, 298.0, *msft.Values[0])
	assert.Nil(t, msft.Values[1])
	assert.Equal(t, 300.0, *msft.Values[2])

	none, _ := ds.Column("NONE")
	s, err := ExtractSeries(ds, "NONE")
	require.NoError(t, err)
	assert.Len(t, none.Values, 3)
	assert.Empty(t, s)
}

func TestTimeframeDuration(t *testing.T) {
	assert.Equal(t, time.Second, TimeframeDuration("1s"))
	assert.Equal(t, time.Minute, TimeframeDuration("1m"))
	assert.Equal(t, 5*time.Minute, TimeframeDuration("5m"))
	assert.Equal(t, time.Minute, TimeframeDuration("bogus"))
}

func TestExtractSeries_LongerThanIndex(t *testing.T) {
	ds := &models.Dataset{
		Index: []time.Time{time.Unix(0, 0), time.Unix(60, 0)},
		Columns: []models.Column{
			{Name: "GOOD", Values: models.Floats(1, 2)},
			{Name: "BAD", Values: models.Floats(1, 2, 3)},
		},
	}

	s, err := ExtractSeries(ds, "GOOD")
	require.NoError(t, err)
	assert.Equal(t, models.Series{1, 2}, s)

	_, err = ExtractSeries(ds, "BAD")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domsvc.ErrSeriesMisaligned))
	var ee *domsvc.ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "BAD", ee.Name)
}
