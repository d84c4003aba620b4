package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/render"
)

// BackendInfo describes one backend for the listing.
type BackendInfo struct {
	ID      string   `json:"id"`
	Options []string `json:"options"`
}

// BackendList is the success payload for the backends command.
type BackendList struct {
	Backends []BackendInfo `json:"backends"`
}

func (l BackendList) String() string {
	var b strings.Builder
	for i, info := range l.Backends {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(info.ID + ": " + strings.Join(info.Options, ", "))
	}
	return b.String()
}

// NewBackendsCommand creates the backends command.
func NewBackendsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "backends",
		Short:         "List backend ids and the options each accepts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			list := BackendList{}
			for _, id := range render.Backends() {
				accepted, _ := render.AcceptedOptions(id)
				list.Backends = append(list.Backends, BackendInfo{ID: id, Options: accepted})
			}
			return formatter.Success(list)
		},
	}
}
