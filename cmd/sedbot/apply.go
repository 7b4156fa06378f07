package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rg/sedbot/internal/sed"
)

var errNotSubstitution = errors.New(`not a substitution command, expected "s/search/replace/flags"`)

// newApplyCmd runs a substitution offline, the same way the bot would on a
// replied-to message.
func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <command> [text]",
		Short: "Apply a substitution command to text (reads stdin when text is omitted)",
		Example: `  sedbot apply 's/world/there/' 'hello world'
  echo 'a-b-c' | sedbot apply 's/-/+/g'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, ok, err := sed.ParseCommand(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return errNotSubstitution
			}

			var text string
			if len(args) == 2 {
				text = args[1]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = strings.TrimSuffix(string(data), "\n")
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rule.Apply(text))
			return err
		},
	}
}
