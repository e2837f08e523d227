package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	elerrors "github.com/vango-dev/elements/internal/errors"
	"github.com/vango-dev/elements/pkg/element"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func resolveCmd(c *cli) *cobra.Command {
	var (
		output      string
		failPending bool
	)

	cmd := &cobra.Command{
		Use:   "resolve [source...]",
		Short: "Load declaration documents and report what registered",
		Long: `Load every declaration document from the given sources (or the
configured ones), resolve them, and print the registered types and any
requests still waiting for a definition or supertype.

Examples:
  elements resolve ./widgets
  elements resolve widgets.yaml base.hcl -o json
  elements resolve s3://my-bucket/widgets/ --region us-east-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newEnv(c.cfg, c.logger, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.close(context.WithoutCancel(cmd.Context()))

			_, loadErr := rt.load(cmd.Context(), c.sources(args))
			if err := printResolution(cmd.OutOrStdout(), output, rt.engine); err != nil {
				return err
			}
			if loadErr != nil {
				return loadErr
			}
			if failPending {
				if pending := rt.engine.Pending(); len(pending) > 0 {
					return fmt.Errorf("%d registration requests are still pending", len(pending))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json, or yaml")
	cmd.Flags().BoolVar(&failPending, "fail-pending", false, "exit non-zero when requests are left pending")
	return cmd
}

// resolution is the machine-readable resolve report.
type resolution struct {
	Registered []*element.Prototype     `json:"registered"`
	Pending    []element.PendingRequest `json:"pending"`
	Stats      element.Stats            `json:"stats"`
}

func resolutionOf(eng *element.Engine) resolution {
	res := resolution{
		Pending: eng.Pending(),
		Stats:   eng.Stats(),
	}
	for _, name := range eng.RegisteredNames() {
		if p, ok := eng.Registered(name); ok {
			res.Registered = append(res.Registered, p)
		}
	}
	return res
}

func printResolution(w io.Writer, format string, eng *element.Engine) error {
	res := resolutionOf(eng)
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case outputYAML:
		// Prototypes only marshal to JSON; round-trip through it.
		data, err := json.Marshal(res)
		if err != nil {
			return err
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case outputTable, "":
		return printTable(w, res)
	default:
		return elerrors.New("E225").WithDetailf("unknown output format %q", format)
	}
}

func printTable(w io.Writer, res resolution) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEXTENDS\tCHAIN\tMEMBERS")
	for _, p := range res.Registered {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
			p.Name(), dash(p.Extends()), chain(p), len(p.CustomMembers()))
	}
	if len(res.Pending) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "PENDING\tSTATUS\tWAITING ON\tREQUEST")
		for _, pr := range res.Pending {
			status := pr.Status.String()
			if pr.Lost {
				status += " (lost)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", pr.Name, status, dash(pr.WaitingOn), pr.ID)
		}
	}
	fmt.Fprintf(tw, "\n%d registered, %d pending, %d definitions\n",
		res.Stats.Registered, res.Stats.Pending, res.Stats.Definitions)
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// chain renders the prototype chain without the unnamed generic root.
func chain(p *element.Prototype) string {
	names := p.Chain()
	if n := len(names); n > 0 && names[n-1] == "" {
		names = names[:n-1]
	}
	return strings.Join(names, " > ")
}
