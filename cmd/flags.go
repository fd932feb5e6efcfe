package cmd

import (
	"fmt"
	"strconv"

	"github.com/gnames/gnfmt"
	"github.com/spf13/cobra"
)

// printJSON writes a value as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := gnfmt.GNjson{Pretty: true}
	res, err := enc.Encode(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(res))
	return nil
}

// parseID reads a positive numeric ID from a command argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID %q, a positive number is expected", s)
	}
	return id, nil
}

// optionalID returns a pointer to the value of an ID flag, or nil if the
// flag was not set. Zero means explicit "none".
func optionalID(cmd *cobra.Command, name string) (*int64, bool, error) {
	if !cmd.Flags().Changed(name) {
		return nil, false, nil
	}
	id, err := cmd.Flags().GetInt64(name)
	if err != nil {
		return nil, false, err
	}
	if id < 0 {
		return nil, false, fmt.Errorf("invalid --%s %d", name, id)
	}
	if id == 0 {
		return nil, true, nil
	}
	return &id, true, nil
}
