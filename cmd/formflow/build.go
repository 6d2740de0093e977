package main

import (
	"fmt"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/vine-io/formflow/api"
	"github.com/vine-io/formflow/mapping"
	"github.com/vine-io/formflow/params"
	"github.com/vine-io/formflow/roles"
)

func readDescriptors(cmd *cobra.Command, name string) ([]*api.ProcessParameter, error) {
	data, err := readInput(cmd, name)
	if err != nil {
		return nil, err
	}
	descriptors := make([]*api.ProcessParameter, 0)
	if err = json.Unmarshal(data, &descriptors); err != nil {
		return nil, fmt.Errorf("decode descriptors: %w", err)
	}
	return descriptors, nil
}

func newBuildCmd(a *app) *cobra.Command {
	var (
		mappingFile     string
		dataFile        string
		descriptorsFile string
		strictness      string
		sets            []string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build process parameters from form data",
		Long: "Build process parameters from a JSON form data document. With --mapping only the mapped " +
			"fields are sent, renamed and transformed, otherwise every field is sent under its own name.",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, dataFile)
			if err != nil {
				return err
			}
			data := params.FormData{}
			if err = json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("decode form data: %w", err)
			}

			var out []*api.Parameter
			if mappingFile != "" {
				m, err := mapping.Load(mappingFile)
				if err != nil {
					return err
				}

				if strictness == "" {
					cfg, err := a.config()
					if err != nil {
						return err
					}
					strictness = cfg.Mapping.Strictness
				}
				level, err := mapping.ParseStrictness(strictness)
				if err != nil {
					return err
				}

				opts := []mapping.Option{mapping.WithStrictness(level)}
				if descriptorsFile != "" {
					descriptors, err := readDescriptors(cmd, descriptorsFile)
					if err != nil {
						return err
					}
					opts = append(opts, mapping.WithDescriptors(descriptors))
				}

				out, err = mapping.NewBuilder(m, opts...).Build(data)
				if err != nil {
					return err
				}
			} else {
				out = params.ToParameters(data)
			}

			additional := make([]*api.Parameter, 0, len(sets))
			for _, set := range sets {
				name, value, ok := strings.Cut(set, "=")
				if !ok || name == "" {
					return fmt.Errorf("invalid --set '%s', want name=value", set)
				}
				additional = append(additional, params.NewParameter(name, value))
			}

			return writeJSON(cmd.OutOrStdout(), params.Merge(out, additional))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&mappingFile, "mapping", "m", "", "YAML field mapping")
	flags.StringVarP(&dataFile, "data", "d", "-", "JSON form data, - reads stdin")
	flags.StringVar(&descriptorsFile, "descriptors", "", "JSON process parameters marking required fields")
	flags.StringVar(&strictness, "strictness", "", "missing required fields: ignore, warn or fail")
	flags.StringArrayVar(&sets, "set", nil, "additional parameter name=value, wins over form fields")

	return cmd
}

func newFilterCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "filter <descriptors.json>",
		Short: "Show the fields a start or continue form exposes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) > 0 {
				name = args[0]
			}
			descriptors, err := readDescriptors(cmd, name)
			if err != nil {
				return err
			}

			switch role {
			case "start":
				descriptors = roles.FilterForStart(descriptors)
			case "continue":
				descriptors = roles.FilterForContinue(descriptors)
			default:
				return fmt.Errorf("unknown role '%s', want start or continue", role)
			}
			return writeJSON(cmd.OutOrStdout(), roles.FieldsFor(descriptors))
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", "start", "form role: start or continue")

	return cmd
}
