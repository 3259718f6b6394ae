package engine

// DefaultTargetLen is the default fixed sequence length stored and query
// embeddings are normalized to before scoring. ColQwen page embeddings top
// out around this many tokens at the default resolution.
const DefaultTargetLen = 620

// Normalize pads or truncates a token-vector sequence to exactly targetLen
// rows. Short sequences are extended with zero vectors, which contribute
// nothing under the scorer; long sequences keep their first targetLen rows
// and silently drop the remainder.
//
// Indexing and querying must normalize through this one function with the
// same targetLen, otherwise stored and query shapes drift apart.
func Normalize(seq [][]float32, targetLen int) [][]float32 {
	if targetLen < 0 {
		targetLen = 0
	}

	switch {
	case len(seq) == targetLen:
		return seq
	case len(seq) > targetLen:
		return seq[:targetLen]
	}

	dim := 0
	if len(seq) > 0 {
		dim = len(seq[0])
	}

	normalized := make([][]float32, targetLen)
	copy(normalized, seq)
	for i := len(seq); i < targetLen; i++ {
		normalized[i] = make([]float32, dim)
	}

	return normalized
}
