// Package dis renders a step-by-step listing of a program's execution.
package dis

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/shortprog/op"
	"github.com/deepnoodle-ai/shortprog/vm"
	"github.com/fatih/color"
)

// Step is one executed instruction.
type Step struct {
	Offset   int
	Symbol   op.Code
	Name     string
	Depth    int
	Top      float64
	HasTop   bool
	Rejected bool
}

type recorder struct {
	steps []Step
}

func (r *recorder) OnStep(ev vm.StepEvent) bool {
	r.steps = append(r.steps, Step{
		Offset:   ev.Offset,
		Symbol:   ev.Opcode,
		Name:     ev.OpcodeName,
		Depth:    ev.StackDepth,
		Top:      ev.Top,
		HasTop:   ev.HasTop,
		Rejected: ev.Rejected,
	})
	return true
}

// Trace executes program against start and records every step.
func Trace(program []op.Code, start float64) ([]Step, vm.Transformation, bool, error) {
	rec := &recorder{}
	result, ok, err := vm.Execute(program, start, vm.WithObserver(rec))
	if err != nil {
		return nil, vm.Transformation{}, false, err
	}
	return rec.steps, result, ok, nil
}

var headers = []string{"OFFSET", "SYMBOL", "NAME", "DEPTH", "TOP"}

// Print writes steps as a bordered table.
func Print(steps []Step, w io.Writer) {
	rows := make([][]string, len(steps))
	rejected := make([]bool, len(steps))
	for i, s := range steps {
		rejected[i] = s.Rejected
		top := ""
		switch {
		case s.Rejected:
			top = "rejected"
		case s.HasTop:
			top = strconv.FormatFloat(s.Top, 'g', -1, 64)
		}
		rows[i] = []string{
			strconv.Itoa(s.Offset),
			s.Symbol.String(),
			s.Name,
			strconv.Itoa(s.Depth),
			top,
		}
	}
	printTable(w, headers, rows, []bool{true, false, false, true, false}, rejected)
}

// Alphabet writes the instruction set with the positions each instruction
// may occupy in an enumerated program.
func Alphabet(w io.Writer) {
	first := map[op.Code]bool{}
	for _, c := range op.First {
		first[c] = true
	}
	codes := append(append([]op.Code{}, op.Interior...), op.Nop)
	rows := make([][]string, len(codes))
	for i, c := range codes {
		info := op.GetInfo(c)
		rows[i] = []string{
			c.String(),
			info.Name,
			strconv.Itoa(info.MinStack),
			strconv.FormatBool(info.Grows),
			positions(c, first[c]),
		}
	}
	printTable(w, []string{"SYMBOL", "NAME", "MIN STACK", "PUSHES", "POSITIONS"},
		rows, []bool{false, false, true, false, false}, nil)
}

func positions(c op.Code, first bool) string {
	if c == op.Nop {
		return "padding"
	}
	var parts []string
	if first {
		parts = append(parts, "first")
	}
	parts = append(parts, "interior")
	if op.IsFinal(c) {
		parts = append(parts, "final")
	}
	return strings.Join(parts, ",")
}

// printTable writes a bordered table. Columns flagged in right are right
// aligned; rows flagged in highlight are colored red.
func printTable(w io.Writer, headers []string, rows [][]string, right, highlight []bool) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	border := borderLine(widths)
	fmt.Fprintln(w, border)
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = center(h, widths[i])
	}
	fmt.Fprintln(w, "| "+strings.Join(cells, " | ")+" |")
	fmt.Fprintln(w, border)
	red := color.New(color.FgRed).SprintFunc()
	for r, row := range rows {
		for i, cell := range row {
			if right[i] {
				cells[i] = fmt.Sprintf("%*s", widths[i], cell)
			} else {
				cells[i] = fmt.Sprintf("%-*s", widths[i], cell)
			}
		}
		line := "| " + strings.Join(cells, " | ") + " |"
		if highlight != nil && highlight[r] {
			line = red(line)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, border)
}

func borderLine(widths []int) string {
	var sb strings.Builder
	sb.WriteByte('+')
	for _, width := range widths {
		sb.WriteString(strings.Repeat("-", width+2))
		sb.WriteByte('+')
	}
	return sb.String()
}

func center(s string, width int) string {
	pad := width - len(s)
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
