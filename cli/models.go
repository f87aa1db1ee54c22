package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ModelAdmin manages the models of the completions server.
type ModelAdmin interface {
	ModelInfo(ctx context.Context) (string, error)
	ListModels(ctx context.Context) ([]string, error)
	LoadModel(ctx context.Context, name, preset string) error
}

// Models prints the loaded model and the available ones. With choose set it
// then asks for a model and loads it with preset.
func Models(ctx context.Context, admin ModelAdmin, in io.Reader, out io.Writer, choose bool, preset string) error {
	current, err := admin.ModelInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to get loaded model: %w", err)
	}
	fmt.Fprintf(out, "Loaded model: %s\n\n", current)

	names, err := admin.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	if !choose {
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	name, err := SelectModel(in, out, names)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loading %s...\n", name)
	if err := admin.LoadModel(ctx, name, preset); err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	fmt.Fprintf(out, "Loaded %s\n", name)
	return nil
}

// SelectModel lists names numbered from 1 and reads a selection from input,
// asking again until the answer is a valid number.
func SelectModel(input io.Reader, out io.Writer, names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("no models available")
	}
	for i, name := range names {
		fmt.Fprintf(out, "%d: %s\n", i+1, name)
	}

	scanner := bufio.NewScanner(input)
	for {
		fmt.Fprint(out, "Select model number: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("failed to read selection: %w", err)
			}
			return "", fmt.Errorf("no model selected")
		}
		n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err == nil && n >= 1 && n <= len(names) {
			return names[n-1], nil
		}
		fmt.Fprintf(out, "Invalid selection, enter a number between 1 and %d.\n", len(names))
	}
}
