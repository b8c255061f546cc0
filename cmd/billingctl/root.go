package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"billingengine/internal/billing"
)

const dateLayout = "2006-01-02"

// cliOptions are the persistent flags shared by every subcommand.
type cliOptions struct {
	classifier string
	minorUnit  string
	numbering  string
	today      string
	verbose    bool
}

func (o *cliOptions) aggregateOptions() (billing.AggregateOptions, error) {
	opts := billing.AggregateOptions{
		Classifier: billing.DefaultClassifier,
		Words:      billing.WordsOptions{MinorUnit: o.minorUnit, Numbering: billing.Numbering(o.numbering)},
	}
	switch o.classifier {
	case "", "default":
	case "strict":
		opts.Classifier = billing.StrictClassifier
	default:
		return opts, fmt.Errorf("unknown classifier %q", o.classifier)
	}
	switch opts.Words.Numbering {
	case billing.NumberingInternational, billing.NumberingIndian:
	default:
		return opts, fmt.Errorf("unknown numbering %q", o.numbering)
	}
	return opts, nil
}

func (o *cliOptions) todayDate() (time.Time, error) {
	if o.today == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(dateLayout, o.today)
	if err != nil {
		return time.Time{}, fmt.Errorf("--today must look like %s: %w", dateLayout, err)
	}
	return t, nil
}

func (o *cliOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func newRootCmd() *cobra.Command {
	o := &cliOptions{}
	root := &cobra.Command{
		Use:          "billingctl",
		Short:        "Offline billing calculations over JSON snapshots",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&o.classifier, "classifier", "default", "line item classifier: default or strict")
	root.PersistentFlags().StringVar(&o.minorUnit, "minor-unit", "Cents", "name of the minor currency unit")
	root.PersistentFlags().StringVar(&o.numbering, "numbering", string(billing.NumberingInternational), "international or indian")
	root.PersistentFlags().StringVar(&o.today, "today", "", "evaluation date (YYYY-MM-DD), defaults to now")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(newWordsCmd(o), newTotalsCmd(o), newReconcileCmd(o))
	return root
}

func readJSON(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	data, err = expandDates(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// expandDates rewrites YYYY-MM-DD values of *date fields to RFC 3339 so they decode
// into time.Time. Full timestamps are left alone.
func expandDates(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if !walkDates(doc) {
		return data, nil
	}
	return json.Marshal(doc)
}

func walkDates(node any) bool {
	changed := false
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			if s, ok := v.(string); ok && strings.HasSuffix(k, "date") {
				if t, err := time.Parse(dateLayout, s); err == nil {
					n[k] = t.Format(time.RFC3339)
					changed = true
				}
				continue
			}
			if walkDates(v) {
				changed = true
			}
		}
	case []any:
		for _, v := range n {
			if walkDates(v) {
				changed = true
			}
		}
	}
	return changed
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
