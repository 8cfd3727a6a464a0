package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/synapz-learn/signavatar/common"
	"github.com/synapz-learn/signavatar/engine/sequencer"
	"github.com/synapz-learn/signavatar/engine/skeleton"
)

// gaugeRange is the rotation, in radians, that fills half a gauge.
const gaugeRange = math.Pi / 2

const gaugeWidth = 11

var (
	styleTitle   = tcell.StyleDefault.Bold(true)
	styleCaption = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleLabel   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleGauge   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleInput   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
)

// cellWriter is the part of tcell.Screen the view draws through.
type cellWriter interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
}

// snapshot is everything one terminal frame shows.
type snapshot struct {
	state   sequencer.State
	caption string
	pending int
	status  string
	input   string
	pose    skeleton.Pose
	joints  []string
}

// drawView paints a snapshot into a width x height area and returns the rows used.
func drawView(w cellWriter, width, height int, s snapshot) int {
	row := 0
	put := func(text string, style tcell.Style) {
		if row >= height {
			return
		}
		putLine(w, row, width, text, style)
		row++
	}

	put(fmt.Sprintf("signterm  state: %-8s pending: %d", s.state, s.pending), styleTitle)
	put("caption: "+common.Coalesce(strings.TrimSpace(s.caption), "(none)"), styleCaption)
	put(s.status, styleLabel)
	put("", tcell.StyleDefault)

	// Keep the last row for the input line.
	for _, name := range s.joints {
		if row >= height-1 {
			break
		}
		put(jointLine(name, s.pose[name]), styleGauge)
	}

	for row < height-1 {
		put("", tcell.StyleDefault)
	}
	put("> "+s.input, styleInput)
	return row
}

func putLine(w cellWriter, y, width int, text string, style tcell.Style) {
	x := 0
	for _, r := range text {
		if x >= width {
			return
		}
		w.SetContent(x, y, r, nil, style)
		x++
	}
	for ; x < width; x++ {
		w.SetContent(x, y, ' ', nil, tcell.StyleDefault)
	}
}

func jointLine(name string, rot skeleton.Vector3) string {
	return fmt.Sprintf("%-18s x %s y %s z %s",
		shortJointName(name),
		gauge(rot[0], gaugeWidth),
		gauge(rot[1], gaugeWidth),
		gauge(rot[2], gaugeWidth),
	)
}

func shortJointName(name string) string {
	return strings.TrimPrefix(name, "mixamorig")
}

// gauge draws value as a bar growing left or right from a centre mark.
func gauge(value float32, width int) string {
	if width < 3 {
		width = 3
	}
	if width%2 == 0 {
		width++
	}
	half := width / 2
	cells := []rune(strings.Repeat("·", width))
	cells[half] = '|'

	n := int(math.Round(float64(common.Clamp(float32(math.Abs(float64(value)))/gaugeRange, 0, 1)) * float64(half)))
	for i := 1; i <= n; i++ {
		if value < 0 {
			cells[half-i] = '█'
		} else {
			cells[half+i] = '█'
		}
	}
	return "[" + string(cells) + "]"
}

// visibleJoints keeps the names the rig actually has, in order.
func visibleJoints(rig skeleton.Skeleton, names []string) []string {
	if rig == nil {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := rig.Joint(name); ok {
			out = append(out, name)
		}
	}
	return out
}
