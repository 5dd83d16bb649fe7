// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Thermoquad/standcan/pkg/rd2"
)

// Result is a parsed capture. Frames keep entry order; entries that failed
// to parse are listed in Errors and left out of Frames.
type Result struct {
	Frames []rd2.Frame
	Errors []*LineError
}

// ParseAll parses capture entries on up to workers goroutines. Entries are
// independent, so the pass is parallel; the result is in input order and
// ready for sequential replay. workers <= 0 uses GOMAXPROCS.
func ParseAll(ctx context.Context, entries []string, f Format, workers int) (*Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	frames := make([]rd2.Frame, len(entries))
	errs := make([]error, len(entries))

	chunk := (len(entries) + workers - 1) / workers
	g, ctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(entries); lo += chunk {
		lo := lo
		hi := min(lo+chunk, len(entries))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%4096 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				frames[i], errs[i] = ParseLine(f, entries[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Frames: make([]rd2.Frame, 0, len(entries))}
	for i := range entries {
		if errs[i] != nil {
			res.Errors = append(res.Errors, &LineError{Line: i + 1, Text: entries[i], Err: errs[i]})
			continue
		}
		res.Frames = append(res.Frames, frames[i])
	}
	return res, nil
}
