package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledComprehension is one document entry in canonical form.
type CompiledComprehension struct {
	Name string          `json:"name"`
	Hash string          `json:"hash"`
	IR   json.RawMessage `json:"ir"`
}

// CompilationResult holds the compiled comprehensions.
type CompilationResult struct {
	Comprehensions []CompiledComprehension `json:"comprehensions"`
}

func (r CompilationResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compiled %d comprehension(s)", len(r.Comprehensions))
	for _, c := range r.Comprehensions {
		fmt.Fprintf(&b, "\n%s  %s", c.Hash[:12], c.Name)
	}
	return b.String()
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <docs-dir>",
		Short: "Compile CUE comprehension documents to canonical IR",
		Long: `Compile CUE comprehension documents to canonical IR JSON.

Each document entry is validated, canonicalized (sorted keys, NFC,
no HTML escaping) and content-hashed under the pcs/comp/v1 domain.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, docsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadComprehensions(docsDir, LoadModeCollectAll)

	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, docsDir)

	if len(loadErrors) > 0 {
		details := make([]string, len(loadErrors))
		for i, e := range loadErrors {
			details[i] = e.Error()
		}
		if err := formatter.Error(ErrCodeCompileFailed,
			fmt.Sprintf("%d document error(s)", len(loadErrors)), details); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, "compilation failed")
	}

	result := CompilationResult{}
	for _, named := range loadResult.Comprehensions {
		formatter.VerboseLog("Compiling comprehension: %s", named.Name)
		canonical, err := ir.MarshalCanonical(named.Comp)
		if err != nil {
			return outputCompileError(formatter, ErrCodeGeneric, err.Error())
		}
		hash, err := ir.Hash(named.Comp)
		if err != nil {
			return outputCompileError(formatter, ErrCodeGeneric, err.Error())
		}
		result.Comprehensions = append(result.Comprehensions, CompiledComprehension{
			Name: named.Name,
			Hash: hash,
			IR:   json.RawMessage(canonical),
		})
	}

	if opts.Output != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return outputCompileError(formatter, ErrCodeGeneric, err.Error())
		}
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return formatter.Success(result)
}

func outputCompileError(formatter *OutputFormatter, code, message string) error {
	if err := formatter.Error(code, message, nil); err != nil {
		return err
	}
	return NewExitError(ExitCommandError, message)
}
