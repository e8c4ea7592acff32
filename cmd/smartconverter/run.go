package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/tools"
)

// localClient is the limiter key of everything run from this machine.
const localClient = "local"

// result is what a tool produced.
type result struct {
	name string
	data []byte
	note string // extra line printed after the output path
}

// run reads the inputs of the tool named slug, checks the daily limit,
// runs fn and writes its result. The conversion is counted only after the
// file is written.
func (a *app) run(cmd *cobra.Command, slug string, paths []string, fn func(files []tools.Upload) (result, error)) error {
	ctx := cmd.Context()
	t := tools.MustLookup(slug)

	files, err := readInputs(ctx, paths)
	if err != nil {
		return err
	}
	if err := tools.Validate(t, files); err != nil {
		return userError(err)
	}

	var lim *limiter.Limiter
	if t.Consumes && !a.v.GetBool("unlimited") {
		l, closeFn, err := a.openLimiter()
		if err != nil {
			return err
		}
		defer closeFn()

		st, err := l.Status(ctx, localClient)
		if err != nil {
			return err
		}
		if !st.Unlimited && st.Remaining == 0 {
			return fmt.Errorf("%s (pass --unlimited to skip the check)", limiter.LimitMessage)
		}
		lim = l
	}

	res, err := fn(files)
	if err != nil {
		return userError(err)
	}

	path, err := a.write(res)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Wrote %s (%s)\n", path, humanize.Bytes(uint64(len(res.data))))
	if res.note != "" {
		fmt.Fprintln(out, res.note)
	}

	if lim != nil {
		st, err := lim.Consume(ctx, localClient)
		switch {
		case errors.Is(err, limiter.ErrLimitReached):
			// Another run took the last one meanwhile; the output stays.
		case err != nil:
			return fmt.Errorf("count conversion: %w", err)
		case !st.Unlimited:
			fmt.Fprintf(out, "🔢 %d of %d conversions left today\n", st.Remaining, st.Limit)
		}
	}
	return nil
}

// readInputs loads every path concurrently, keeping the order given.
func readInputs(ctx context.Context, paths []string) ([]tools.Upload, error) {
	files := make([]tools.Upload, len(paths))
	g, _ := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			files[i] = tools.Upload{Name: filepath.Base(p), Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// readExtra loads a secondary input such as a watermark image. An empty
// path returns nil.
func readExtra(path string, kind tools.Kind) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := tools.CheckKind(kind, filepath.Base(path), data); err != nil {
		return nil, userError(err)
	}
	return data, nil
}

// write stores res at --output, or under --output-dir by its own name.
func (a *app) write(res result) (string, error) {
	path := a.output
	if path == "" {
		path = filepath.Join(a.v.GetString("output-dir"), res.name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, res.data, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}

// userError replaces validation errors with the message meant for people.
func userError(err error) error {
	var ve *tools.ValidationError
	if errors.As(err, &ve) {
		if ve.File != "" {
			return fmt.Errorf("%s: %s", ve.File, ve.Message)
		}
		return errors.New(ve.Message)
	}
	return err
}

func datas(files []tools.Upload) [][]byte {
	out := make([][]byte, len(files))
	for i, f := range files {
		out[i] = f.Data
	}
	return out
}
