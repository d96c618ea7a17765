package transfer

// Progress is one observation of a transfer's advancement. TotalBytes is
// the expected total when the transport knows it, and zero or negative
// when it does not.
type Progress struct {
	BytesTransferred int64
	TotalBytes       int64
}

// Fraction returns the completed fraction in [0, 1]. It is defined only
// when the expected total is known and positive.
func (p Progress) Fraction() (float64, bool) {
	if p.TotalBytes <= 0 {
		return 0, false
	}
	return float64(p.BytesTransferred) / float64(p.TotalBytes), true
}
