package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

var ErrNoData = errors.New("nothing to plot")

// Series is one line of a response plot.
type Series struct {
	Label  string
	Color  string
	Values []float64
}

// ResponseSVG draws every series against times on shared axes and writes
// the SVG document to w. Series shorter than times are drawn as far as
// they go.
func ResponseSVG(w io.Writer, times []float64, series []Series, width, height int) error {
	if len(times) < 2 || len(series) == 0 {
		return ErrNoData
	}

	minX, maxX := times[0], times[len(times)-1]
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
	}
	if math.IsInf(minY, 1) {
		return ErrNoData
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for i, s := range series {
		n := min(len(s.Values), len(times))
		if n < 2 {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Color))
		pen := false
		for j := 0; j < n; j++ {
			v := s.Values[j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			x := (times[j] - minX) / rangeX * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			if !pen {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
				pen = true
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
		sb.WriteString(fmt.Sprintf(`<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16+14*i, s.Color, escape(s.Label)))
	}

	sb.WriteString(fmt.Sprintf(`<text x="8" y="%d" fill="#888888" font-family="monospace" font-size="11">t %.3g..%.3gs  y %.4g..%.4g</text>
</svg>
`, height-6, minX, maxX, minY, maxY))

	_, err := io.WriteString(w, sb.String())
	return err
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
