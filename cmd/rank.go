/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"github.com/gnames/gntree/pkg/rank"
	"github.com/spf13/cobra"
)

// rankOutput describes a normalized rank.
type rankOutput struct {
	Input     string `json:"input"`
	Rank      string `json:"rank,omitempty"`
	Level     int    `json:"level,omitempty"`
	Canonical bool   `json:"canonical"`
}

// getRankCmd returns the rank command.
func getRankCmd() *cobra.Command {
	var list, preferred bool

	rankCmd := &cobra.Command{
		Use:   "rank [rank...]",
		Short: "Normalize taxonomic ranks",
		Long: `Rank shows how free-text ranks are stored: lowercased, stripped of
punctuation, with synonyms resolved ("ssp." becomes "subspecies",
"division" becomes "phylum"). Unranked values are stored as no rank.

Examples:
  gntree rank ssp. Division unranked
  gntree rank --list
  gntree rank --list --preferred`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return printJSON(cmd, listRanks(preferred))
			}
			return printJSON(cmd, normalizeRanks(args))
		},
	}

	rankCmd.Flags().BoolVarP(&list, "list", "l", false,
		"list canonical ranks from kingdom to form")
	rankCmd.Flags().BoolVarP(&preferred, "preferred", "p", false,
		"list only ranks commonly shown in classifications")
	return rankCmd
}

func listRanks(preferred bool) []string {
	if preferred {
		return rank.Preferred()
	}
	return rank.Ranks()
}

func normalizeRanks(ss []string) []rankOutput {
	res := make([]rankOutput, len(ss))
	for i, v := range ss {
		res[i].Input = v
		r, ok := rank.Normalize(v)
		if !ok {
			continue
		}
		res[i].Rank = r
		res[i].Level, _ = rank.Level(r)
		res[i].Canonical = rank.IsCanonical(r)
	}
	return res
}
