package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/thywilljoshua/pdf-to-pptx/internal/convert"
)

func convertCmd() *cobra.Command {
	var out string
	var bundle bool
	var flags pipelineFlags

	cmd := &cobra.Command{
		Use:   "convert <pdf|zip>...",
		Short: "Convert PDFs (or ZIP archives of PDFs) into .pptx files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = "."
			}
			conf, err := flags.config(cmd.Context())
			if err != nil {
				return err
			}
			conf.Progress = cmd.ErrOrStderr()

			var files []convert.File
			for _, p := range args {
				data, err := os.ReadFile(p)
				if err != nil {
					return err
				}
				found, warnings, err := convert.Collect(filepath.Base(p), data)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				for _, w := range warnings {
					fmt.Fprintf(conf.Progress, "⚠️  %s\n", w)
				}
				files = append(files, found...)
			}
			if len(files) == 0 {
				return errors.New("no PDF files to convert")
			}

			results, errs := convert.RunAll(cmd.Context(), files, conf)
			for _, err := range errs {
				fmt.Fprintf(conf.Progress, "❌ %v\n", err)
			}
			if len(results) == 0 {
				return errors.Join(errs...)
			}

			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			var written []string
			if bundle && len(results) > 1 {
				b, err := convert.Bundle(results)
				if err != nil {
					return err
				}
				p := filepath.Join(out, convert.BundleName)
				if err := os.WriteFile(p, b, 0o644); err != nil {
					return err
				}
				written = append(written, p)
			} else {
				used := map[string]bool{}
				for _, r := range results {
					p := filepath.Join(out, freeName(r.FileName, used))
					if err := os.WriteFile(p, r.Data, 0o644); err != nil {
						return err
					}
					written = append(written, p)
				}
			}

			b, _ := json.MarshalIndent(struct {
				Written []string         `json:"written"`
				Results []convert.Result `json:"results"`
			}{written, results}, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			if len(errs) > 0 {
				return fmt.Errorf("%d of %d files failed", len(errs), len(files))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default: current directory)")
	cmd.Flags().BoolVar(&bundle, "zip", false, "write several presentations as one "+convert.BundleName)
	flags.register(cmd)
	return cmd
}

// freeName avoids two results overwriting each other in one run.
func freeName(name string, used map[string]bool) string {
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
	}
	used[candidate] = true
	return candidate
}
