package pricing

// SpanDistance measures how far apart two text spans are: the minimum of the
// four endpoint-to-endpoint gaps. It handles a cue before or after the
// amount, including overlap, symmetrically.
func SpanDistance(aStart, aEnd, bStart, bEnd int) int {
	d := absInt(aStart - bStart)
	if v := absInt(aEnd - bStart); v < d {
		d = v
	}
	if v := absInt(aStart - bEnd); v < d {
		d = v
	}
	if v := absInt(aEnd - bEnd); v < d {
		d = v
	}
	return d
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
