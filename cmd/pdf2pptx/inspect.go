package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/thywilljoshua/pdf-to-pptx/internal/slides"
)

func inspectCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "inspect <pptx>",
		Short: "Print a presentation's title, slide count and per-slide text as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			st, err := f.Stat()
			if err != nil {
				return err
			}
			deck, err := slides.Inspect(f, st.Size())
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			var v any = deck
			if !full {
				texts := make([]string, len(deck.Slides))
				for i, s := range deck.Slides {
					texts[i] = s.Text()
				}
				v = struct {
					Title  string   `json:"title"`
					Slides int      `json:"slides"`
					Texts  []string `json:"texts"`
				}{deck.Title, len(deck.Slides), texts}
			}
			b, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "shapes", false, "print every shape instead of the page text")
	return cmd
}
