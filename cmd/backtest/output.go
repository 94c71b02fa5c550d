package main

import (
	"fmt"
	"io"
	"os"

	"straddle-lab/internal/config"
	"straddle-lab/internal/reporting"
)

// writeReport renders report in out.Format to out.Path, or stdout when empty.
func writeReport(out config.Output, report *reporting.Report) error {
	data, err := render(out.Format, report)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out.Path != "" {
		f, err := os.Create(out.Path)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func render(format string, report *reporting.Report) ([]byte, error) {
	switch format {
	case config.FormatJSON:
		data, err := reporting.RenderJSON(report)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case config.FormatCSV:
		s, err := reporting.RenderCSV(report.Cycles)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	case config.FormatMarkdown:
		return []byte(reporting.RenderMarkdown(report)), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}
