package otelx

import (
	"fmt"
	"strconv"
)

func parseRatio(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 1 {
		return 0, fmt.Errorf("sampling ratio must be within [0,1] (got %q)", s)
	}
	return f, nil
}
