/*
Copyright 2024 The Waveline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wavelineproj/waveline/pkg/examples/reach"
	"github.com/wavelineproj/waveline/pkg/shared/logging"
)

func NewDemoCommand() *cobra.Command {
	var perEventBatches bool

	command := &cobra.Command{
		Use:   "demo",
		Short: "Run the reachability example dataflow",
		Long: `Feeds a small stream of edge insertions and deletions through a
join+group dataflow that maintains shortest hop distances from node 0, and
prints every distance delta the computation emits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewLogger().Named("demo")
			ctx := logging.WithLogger(cmd.Context(), log)

			events := []reach.EdgeEvent{
				{Round: 0, Src: "0", Dst: "3", Mult: 1},
				{Round: 5, Src: "0", Dst: "2", Mult: 1},
				{Round: 10, Src: "2", Dst: "3", Mult: 1},
				{Round: 11, Src: "0", Dst: "3", Mult: -1},
			}
			var groups [][]reach.EdgeEvent
			if perEventBatches {
				for _, ev := range events {
					groups = append(groups, []reach.EdgeEvent{ev})
				}
			} else {
				groups = [][]reach.EdgeEvent{events}
			}

			deltas, err := reach.Run(ctx, "0", groups)
			if err != nil {
				return err
			}
			for _, d := range deltas {
				fmt.Println(d)
			}

			counts := reach.CountByDist(deltas)
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Println("---")
			for _, k := range keys {
				fmt.Printf("%s: %+d\n", k, counts[k])
			}
			return nil
		},
	}
	command.Flags().BoolVar(&perEventBatches, "per-event-batches", false, "Deliver each edge event as its own batch")
	return command
}

func init() {
	rootCmd.AddCommand(NewDemoCommand())
}
