package diffparse

// PositionForLine maps a head-file line number to the diff line that
// anchors it. The second return value is false when the number has no
// valid anchor, i.e. it sits outside every hunk's head-side range; such
// findings must degrade to a summary-level note instead of a line
// comment.
//
// An exact hit lands on the context or added line carrying that head
// line number. A number that falls inside a hunk's head-side range
// without an exact match (a boundary artifact of off-by-one reporting)
// resolves to the nearest following added line in that hunk; callers
// must anchor on the returned line's NewLine, not the requested number,
// since the platform rejects comments on lines absent from the diff.
func (f *FileFragment) PositionForLine(line int) (Line, bool) {
	if f == nil || line <= 0 {
		return Line{}, false
	}

	for _, h := range f.Hunks {
		span := h.NewLines
		if span < 1 {
			span = 1
		}
		if line < h.NewStart || line >= h.NewStart+span {
			continue
		}

		for _, l := range h.Lines {
			if l.Kind == LineDeleted {
				continue
			}
			if l.NewLine == line {
				return l, true
			}
		}

		// Boundary tie-break: nearest following added line in the hunk.
		for _, l := range h.Lines {
			if l.Kind == LineAdded && l.NewLine > line {
				return l, true
			}
		}
	}

	return Line{}, false
}

// AnchorableLines reports how many head-side lines in the fragment can
// carry a line comment. Zero means everything must go to the summary.
func (f *FileFragment) AnchorableLines() int {
	if f == nil {
		return 0
	}
	n := 0
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			if l.Kind != LineDeleted {
				n++
			}
		}
	}
	return n
}
