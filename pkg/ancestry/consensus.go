package ancestry

// Consensus finds the deepest taxon shared by all paths. Paths are padded
// to equal width and columns are scanned from the deepest to the root. The
// first column where every path has the same non-empty value gives the
// result. The rule is unanimity: one path without the ancestor removes it
// from consideration. Returns false for empty input or when paths share no
// ancestor.
func Consensus(paths []Path) (int64, bool) {
	if len(paths) == 0 {
		return 0, false
	}

	var width int
	for _, p := range paths {
		width = max(width, len(p))
	}

	for col := width - 1; col >= 0; col-- {
		var val int64
		agree := true
		for i, p := range paths {
			if col >= len(p) {
				agree = false
				break
			}
			if i == 0 {
				val = p[col]
				continue
			}
			if p[col] != val {
				agree = false
				break
			}
		}
		if agree && val != 0 {
			return val, true
		}
	}
	return 0, false
}

// ConsensusStrings parses materialized paths and computes their consensus.
// Blank and duplicate paths are treated like any other member.
func ConsensusStrings(ss []string) (int64, bool, error) {
	paths := make([]Path, 0, len(ss))
	for _, s := range ss {
		p, err := Parse(s)
		if err != nil {
			return 0, false, err
		}
		paths = append(paths, p)
	}
	id, ok := Consensus(paths)
	return id, ok, nil
}
