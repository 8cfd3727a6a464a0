package signs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Direction is the sign of a bone instruction's step.
type Direction string

const (
	// Increase steps the component upward until it reaches the limit.
	Increase Direction = "+"

	// Decrease steps the component downward until it reaches the limit.
	Decrease Direction = "-"
)

// instructionArity is the number of fields in an authored instruction tuple.
const instructionArity = 5

// Instruction moves one transform component of one joint toward a limit.
type Instruction struct {
	Joint     string
	Property  string
	Axis      string
	Limit     float32
	Direction Direction

	// Malformed describes why the authored tuple could not be read. Playback drops malformed
	// instructions and records a diagnostic instead of failing the table load.
	Malformed string
}

// Valid reports whether the instruction can be played.
func (in Instruction) Valid() bool {
	return in.Malformed == ""
}

func (in Instruction) String() string {
	if !in.Valid() {
		return "malformed(" + in.Malformed + ")"
	}
	return fmt.Sprintf("%s.%s.%s %s> %g", in.Joint, in.Property, in.Axis, in.Direction, in.Limit)
}

// UnmarshalYAML reads a [joint, property, axis, limit, direction] sequence.
// Any shape error is recorded on the instruction rather than returned, so one bad
// entry cannot reject the rest of the table.
func (in *Instruction) UnmarshalYAML(node *yaml.Node) error {
	*in = Instruction{}

	if node.Kind != yaml.SequenceNode {
		in.Malformed = fmt.Sprintf("line %d: expected a sequence", node.Line)
		return nil
	}
	if len(node.Content) != instructionArity {
		in.Malformed = fmt.Sprintf("line %d: expected %d fields, got %d", node.Line, instructionArity, len(node.Content))
		return nil
	}

	fields := make([]string, instructionArity)
	for i, c := range node.Content {
		if c.Kind != yaml.ScalarNode {
			in.Malformed = fmt.Sprintf("line %d: field %d is not a scalar", c.Line, i+1)
			return nil
		}
		fields[i] = strings.TrimSpace(c.Value)
	}

	limit, err := ParseLimit(fields[3])
	if err != nil {
		in.Malformed = fmt.Sprintf("line %d: %v", node.Line, err)
		return nil
	}

	dir := Direction(fields[4])
	if dir != Increase && dir != Decrease {
		in.Malformed = fmt.Sprintf("line %d: direction %q is not + or -", node.Line, fields[4])
		return nil
	}

	if fields[0] == "" {
		in.Malformed = fmt.Sprintf("line %d: empty joint name", node.Line)
		return nil
	}

	in.Joint = fields[0]
	in.Property = fields[1]
	in.Axis = fields[2]
	in.Limit = limit
	in.Direction = dir
	return nil
}

// ParseLimit reads a numeric limit. Besides plain numbers it accepts multiples of pi
// in the forms "pi", "-pi/2", "2pi/3", "2*pi/3" and "pi/2.5". NaN and infinities are
// rejected: a joint can never reach them.
//
// Parameters:
//   - s: the authored limit
//
// Returns:
//   - float32: the limit in radians
//   - error: error if the expression is not understood
func ParseLimit(s string) (float32, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, err := strconv.ParseFloat(s, 32); err == nil {
		return finiteLimit(s, v)
	}

	neg := false
	expr := s
	if strings.HasPrefix(expr, "-") {
		neg = true
		expr = expr[1:]
	}

	num, den, hasDen := strings.Cut(expr, "/")
	coef, ok := strings.CutSuffix(num, "pi")
	if !ok {
		return 0, fmt.Errorf("limit %q is not a number or multiple of pi", s)
	}
	coef = strings.TrimSuffix(coef, "*")

	v := math.Pi
	if coef != "" {
		c, err := strconv.ParseFloat(coef, 64)
		if err != nil {
			return 0, fmt.Errorf("limit %q: bad coefficient: %w", s, err)
		}
		v *= c
	}
	if hasDen {
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("limit %q: bad divisor", s)
		}
		v /= d
	}
	if neg {
		v = -v
	}
	return finiteLimit(s, v)
}

func finiteLimit(s string, v float64) (float32, error) {
	f := float32(v)
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return 0, fmt.Errorf("limit %q is not finite", s)
	}
	return f, nil
}
