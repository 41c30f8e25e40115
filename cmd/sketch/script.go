package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

type opKind int

const (
	opDown opKind = iota
	opMove
	opUp
	opReset
	opWait
	opFlush
)

// op is one line of a pointer script.
type op struct {
	kind opKind
	x, y float64
	wait time.Duration
	line int
}

// parseScript reads one command per line: down, move X Y, up, reset,
// flush and wait DURATION. Blank lines and lines starting with # are skipped.
func parseScript(r io.Reader) ([]op, error) {
	var ops []op
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		o := op{line: n}
		switch strings.ToLower(fields[0]) {
		case "down":
			o.kind = opDown
		case "up":
			o.kind = opUp
		case "reset":
			o.kind = opReset
		case "flush":
			o.kind = opFlush
		case "move":
			if len(fields) != 3 {
				return nil, fmt.Errorf("line %d: move needs X and Y", n)
			}
			x, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid x: %w", n, err)
			}
			y, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid y: %w", n, err)
			}
			o.kind, o.x, o.y = opMove, x, y
		case "wait":
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: wait needs a duration", n)
			}
			d, err := time.ParseDuration(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid duration: %w", n, err)
			}
			o.kind, o.wait = opWait, d
		default:
			return nil, fmt.Errorf("line %d: unknown command %q", n, fields[0])
		}
		ops = append(ops, o)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ops, nil
}

// pointer is the part of a session a script drives.
type pointer interface {
	Down()
	Move(x, y float64)
	Up()
	Flush()
}

// replay runs ops against p. reset is called for reset lines so the caller
// can decide how long to wait on the store.
func replay(ctx context.Context, p pointer, ops []op, reset func(context.Context) error) error {
	for _, o := range ops {
		switch o.kind {
		case opDown:
			p.Down()
		case opMove:
			p.Move(o.x, o.y)
		case opUp:
			p.Up()
		case opFlush:
			p.Flush()
		case opReset:
			if err := reset(ctx); err != nil {
				return fmt.Errorf("line %d: reset: %w", o.line, err)
			}
		case opWait:
			t := time.NewTimer(o.wait)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
		}
	}
	return nil
}
