package estimation

import (
	"encoding/json"
	"fmt"

	"FinTrend/internal/domain/models"
	domsvc "FinTrend/internal/domain/service"
)

// Engine response keys with fixed meaning; every other numeric array is a component.
const (
	keySuccess    = "success"
	keyMessage    = "message"
	keyTrend      = "trend"
	keyComponents = "components"
)

// DecodeResult validates a loosely-typed engine payload into an
// EstimationResult. success must be a boolean and, when true, trend must
// be a numeric array. Violations wrap domsvc.ErrMalformedResult.
func DecodeResult(raw []byte) (models.EstimationResult, error) {
	var res models.EstimationResult

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return res, fmt.Errorf("%w: %v", domsvc.ErrMalformedResult, err)
	}
	if fields == nil {
		return res, fmt.Errorf("%w: not an object", domsvc.ErrMalformedResult)
	}

	sv, ok := fields[keySuccess]
	if !ok {
		return res, fmt.Errorf("%w: missing %q", domsvc.ErrMalformedResult, keySuccess)
	}
	if err := json.Unmarshal(sv, &res.Success); err != nil {
		return res, fmt.Errorf("%w: %q is not a boolean", domsvc.ErrMalformedResult, keySuccess)
	}

	if mv, ok := fields[keyMessage]; ok && string(mv) != "null" {
		if err := json.Unmarshal(mv, &res.Message); err != nil {
			// Keep non-string messages readable rather than failing the series.
			res.Message = string(mv)
		}
	}

	if tv, ok := fields[keyTrend]; ok && string(tv) != "null" {
		if err := json.Unmarshal(tv, &res.Trend); err != nil {
			return res, fmt.Errorf("%w: %q is not a numeric array", domsvc.ErrMalformedResult, keyTrend)
		}
	}
	if res.Success && res.Trend == nil {
		return res, fmt.Errorf("%w: success without %q", domsvc.ErrMalformedResult, keyTrend)
	}

	for k, v := range fields {
		switch k {
		case keySuccess, keyMessage, keyTrend:
			continue
		case keyComponents:
			var comps map[string][]float64
			if err := json.Unmarshal(v, &comps); err == nil {
				for name, series := range comps {
					addComponent(&res, name, series)
				}
				continue
			}
		}
		var series []float64
		if err := json.Unmarshal(v, &series); err == nil && series != nil {
			addComponent(&res, k, series)
			continue
		}
		var other interface{}
		if err := json.Unmarshal(v, &other); err == nil && other != nil {
			if res.Extra == nil {
				res.Extra = make(map[string]interface{})
			}
			res.Extra[k] = other
		}
	}
	return res, nil
}

func addComponent(res *models.EstimationResult, name string, series []float64) {
	if res.Components == nil {
		res.Components = make(map[string][]float64)
	}
	res.Components[name] = series
}
