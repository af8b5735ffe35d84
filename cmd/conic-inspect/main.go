// conic-inspect builds sample problems, compiles and assembles them, and
// prints the resulting conic standard form.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/coneform/conic"
	"github.com/coneform/conic/assemble"
	"github.com/coneform/conic/pkg/probfmt"
)

func main() {
	root := &cobra.Command{
		Use:   "conic-inspect",
		Short: "Inspect canonicalized conic forms",
	}

	var asYAML bool
	var logLevel string
	demo := &cobra.Command{
		Use:   "demo",
		Short: "Compile and assemble a small demo problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(asYAML, logLevel)
		},
	}
	demo.Flags().BoolVar(&asYAML, "yaml", false, "emit YAML instead of the text listing")
	demo.Flags().StringVar(&logLevel, "log-level", "", "assembler log level (error, warn, info, debug)")
	root.AddCommand(demo)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runDemo builds a tiny regularized tracking problem:
//
//	minimize ||x - target||  +  gamma * sum(|x|)
//	subject to sum(x) == 1, x <= limit
func runDemo(asYAML bool, logLevel string) error {
	s := conic.NewSession()
	x := s.NewVariable(3, 1, "x")

	target, err := s.NewParameter(3, 1, "target", "UNKNOWN")
	if err != nil {
		return err
	}
	if err := target.SetValue(mat.NewDense(3, 1, []float64{0.2, 0.5, 0.3})); err != nil {
		return err
	}
	limit := conic.NewScalarConstant(0.8)

	obj := conic.Add(
		conic.Norm2(conic.Sub(x, target)),
		conic.Scale(0.1, conic.Sum(conic.Abs(x))),
	)

	prob := conic.Problem{
		Minimize: obj,
		Subject: []*conic.Relation{
			conic.Eq(conic.Sum(x), conic.NewScalarConstant(1)),
			conic.Le(x, limit),
		},
	}

	canonical, err := s.Compile(prob)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	form, err := assemble.Assemble(canonical, assemble.Options{LogLevel: logLevel})
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}

	if asYAML {
		out, err := probfmt.Dump(form)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	}

	header := "== demo problem =="
	if isatty.IsTerminal(os.Stdout.Fd()) {
		header = "\x1b[1;36m" + header + "\x1b[0m"
	}
	fmt.Println(header)
	fmt.Print(probfmt.Fmt(form))
	return nil
}
