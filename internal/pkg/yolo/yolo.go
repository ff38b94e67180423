// Package yolo encodes labeled boxes in the YOLO plain-text format:
// one object per line, "<classIndex> <x> <y> <width> <height>", with
// coordinates normalized to the image's own dimensions.
package yolo

import (
	"fmt"
	"strconv"
	"strings"
)

// Line is a single labeled box in class-index form.
type Line struct {
	ClassIndex int
	X          float64
	Y          float64
	Width      float64
	Height     float64
}

// Marshal renders lines as newline-joined YOLO text. No trailing metadata,
// no trailing newline on the final line.
func Marshal(lines []Line) string {
	if len(lines) == 0 {
		return ""
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fmt.Sprintf("%d %s %s %s %s",
			l.ClassIndex,
			formatCoord(l.X),
			formatCoord(l.Y),
			formatCoord(l.Width),
			formatCoord(l.Height),
		)
	}
	return strings.Join(out, "\n")
}

// Parse reads YOLO text back into lines. Blank lines are skipped; a malformed
// line fails the whole parse.
func Parse(text string) ([]Line, error) {
	var lines []Line
	for i, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) != 5 {
			return nil, fmt.Errorf("line %d: expected 5 fields, got %d", i+1, len(fields))
		}
		classIndex, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: class index: %w", i+1, err)
		}
		coords := make([]float64, 4)
		for j, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: coordinate %d: %w", i+1, j+1, err)
			}
			coords[j] = v
		}
		lines = append(lines, Line{
			ClassIndex: classIndex,
			X:          coords[0],
			Y:          coords[1],
			Width:      coords[2],
			Height:     coords[3],
		})
	}
	return lines, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
