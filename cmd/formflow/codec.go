package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	json "github.com/json-iterator/go"
	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"
	log "github.com/vine-io/vine/lib/logger"

	"github.com/vine-io/formflow/codec"
	"github.com/vine-io/formflow/xmlconv"
)

type convertResult struct {
	File  string         `json:"file"`
	Value map[string]any `json:"value,omitempty"`
	Error string         `json:"error,omitempty"`
}

func convertFile(name string) *convertResult {
	result := &convertResult{File: name}
	data, err := os.ReadFile(name)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	value, err := xmlconv.Parse(string(data))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Value = value
	return result
}

// convertFiles converts files on a pool of workers. Results keep the order of
// names.
func convertFiles(names []string, workers int) ([]*convertResult, error) {
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	results := make([]*convertResult, len(names))
	wg := sync.WaitGroup{}
	for i := range names {
		i := i
		wg.Add(1)
		err = pool.Submit(func() {
			defer wg.Done()
			results[i] = convertFile(names[i])
		})
		if err != nil {
			wg.Done()
			results[i] = &convertResult{File: names[i], Error: err.Error()}
		}
	}
	wg.Wait()

	return results, nil
}

func newXML2JSONCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "xml2json [file...]",
		Short: "Convert XML documents to JSON objects",
		Long:  "Convert XML documents to JSON objects. Without files the document is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				data, err := readInput(cmd, "-")
				if err != nil {
					return err
				}
				value, err := xmlconv.Parse(string(data))
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), value)
			}

			cfg, err := a.config()
			if err != nil {
				return err
			}
			log.Debugf("converting %d files with %d workers", len(args), cfg.Workers)
			results, err := convertFiles(args, cfg.Workers)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
					log.Warnf("convert %s: %s", r.File, r.Error)
				}
			}
			if err = writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}
}

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <json>",
		Short: "Encode a JSON value as parameter text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any
			if err := json.Unmarshal([]byte(args[0]), &value); err != nil {
				// bare words are strings
				value = args[0]
			}

			text, kind, ok := codec.Encode(value)
			if !ok {
				return fmt.Errorf("value is omitted from parameters")
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"value": text, "type": kind})
		},
	}
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <text>",
		Short: "Decode parameter text into a typed value",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok := codec.Decode(strings.Join(args, " "))
			if !ok {
				return fmt.Errorf("empty text has no value")
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"value": value, "go": fmt.Sprintf("%T", value)})
		},
	}
}
