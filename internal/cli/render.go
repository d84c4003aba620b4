package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/emit"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/parser"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/render"
	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/sqlexec"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Code       string
	Target     string
	Parallel   bool
	IntType    string
	Mode       string
	Unsafe     bool
	NoExplain  bool
	Threads    int
	Dialect    string
	Output     string // output file path
	ExecuteSQL bool
}

// RenderResult is the success payload for the render command.
type RenderResult struct {
	Target string  `json:"target"`
	Safe   bool    `json:"safe"`
	Reason string  `json:"reason"`
	Code   string  `json:"code"`
	Rows   [][]any `json:"rows,omitempty"`
	Output string  `json:"output,omitempty"`
}

// String renders the text-format output: the emitted code, plus the
// executed rows when --execute-sql ran.
func (r RenderResult) String() string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(r.Code, "\n"))
	if r.Rows != nil {
		b.WriteString("\n\n-- result")
		for _, row := range r.Rows {
			parts := make([]string, len(row))
			for i, v := range row {
				parts[i] = fmt.Sprintf("%v", v)
			}
			b.WriteString("\n" + strings.Join(parts, ", "))
		}
	}
	return b.String()
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a comprehension as source code for one target",
		Long: `Render a comprehension expression as source code for one target backend.

The full flag set is always forwarded to the adapter; each backend
receives only the options it declares, so flags meant for another
backend are ignored rather than rejected.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Code, "code", "", "comprehension source text (required)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "backend id: "+strings.Join(render.Backends(), ", ")+" (required)")
	cmd.Flags().BoolVar(&opts.Parallel, "parallel", false, "request parallel emission")
	cmd.Flags().StringVar(&opts.IntType, "int-type", "", "element type for typed targets (rust)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "lowering mode for julia (loops|broadcast)")
	cmd.Flags().BoolVar(&opts.Unsafe, "unsafe", false, "disable bounds checks where the target allows it (julia)")
	cmd.Flags().BoolVar(&opts.NoExplain, "no-explain", false, "suppress explanatory comments (julia)")
	cmd.Flags().IntVar(&opts.Threads, "threads", 0, "fixed worker count for julia (default: runtime decides)")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (sqlite|postgres)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write emitted code to file")
	cmd.Flags().BoolVar(&opts.ExecuteSQL, "execute-sql", false, "execute the emitted query in-memory (sql target only)")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runRender(opts *RenderOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	comp, err := parser.Parse(opts.Code)
	if err != nil {
		return outputRenderError(formatter, ExitCommandError, ErrCodeParseFailed, err)
	}

	text, plan, err := render.RenderPlan(opts.Target, comp, renderOptionBag(opts))
	if err != nil {
		var unknown *render.UnknownBackendError
		if errors.As(err, &unknown) {
			return outputRenderError(formatter, ExitCommandError, ErrCodeUnknownBackend, err)
		}
		var internal *emit.CodegenInternalError
		if errors.As(err, &internal) {
			return outputRenderError(formatter, ExitFailure, ErrCodeCodegenDefect, err)
		}
		return outputRenderError(formatter, ExitFailure, ErrCodeGeneric, err)
	}

	formatter.VerboseLog("plan: safe=%v reason=%s merge=%s", plan.Safe, plan.Reason, plan.Merge)

	result := RenderResult{
		Target: opts.Target,
		Safe:   plan.Safe,
		Reason: string(plan.Reason),
		Code:   text,
	}

	if opts.ExecuteSQL {
		if opts.Target != render.BackendSQL {
			return outputRenderError(formatter, ExitCommandError, ErrCodeExecFailed,
				fmt.Errorf("--execute-sql requires --target sql, got %q", opts.Target))
		}
		rows, execErr := executeSQL(cmd, comp, text)
		if execErr != nil {
			return outputRenderError(formatter, ExitFailure, ErrCodeExecFailed, execErr)
		}
		result.Rows = rows
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(text), 0o644); err != nil {
			return outputRenderError(formatter, ExitFailure, ErrCodeWriteFailed, err)
		}
		result.Output = opts.Output
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	return nil
}

// renderOptionBag builds the option superset forwarded to the adapter.
// Value-less defaults stay absent so backend defaults apply.
func renderOptionBag(opts *RenderOptions) emit.Options {
	bag := emit.Options{
		emit.OptParallel: opts.Parallel,
		emit.OptUnsafe:   opts.Unsafe,
		emit.OptExplain:  !opts.NoExplain,
	}
	if opts.IntType != "" {
		bag[emit.OptIntType] = opts.IntType
	}
	if opts.Mode != "" {
		bag[emit.OptMode] = opts.Mode
	}
	if opts.Threads > 0 {
		bag[emit.OptThreads] = opts.Threads
	}
	if opts.Dialect != "" {
		bag[emit.OptDialect] = opts.Dialect
	}
	return bag
}

// executeSQL runs the emitted query in a fresh in-memory database.
// Opaque sources get empty backing tables; the query still runs, it
// just sees no rows for them.
func executeSQL(cmd *cobra.Command, comp *ir.Comprehension, query string) ([][]any, error) {
	exec, err := sqlexec.Open()
	if err != nil {
		return nil, err
	}
	defer exec.Close()

	ctx := cmd.Context()
	for _, gen := range comp.Generators {
		if src, ok := gen.Source.(ir.OpaqueSource); ok {
			if err := exec.LoadSource(ctx, src.Name, nil); err != nil {
				return nil, err
			}
		}
	}
	return exec.Query(ctx, query)
}

func outputRenderError(formatter *OutputFormatter, exitCode int, code string, err error) error {
	if outErr := formatter.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(exitCode, "render failed", err)
}
