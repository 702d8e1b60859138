package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leachuk/jackrabbit/internal/colors"
)

var historyCmd = &cobra.Command{
	Use:   "history <path>",
	Short: "Show a node's version history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeRepo, err := openSession()
		if err != nil {
			return err
		}
		defer closeRepo()

		st, err := sess.Node(args[0])
		if err != nil {
			return err
		}
		hist, err := sess.Versions.History(st.ID)
		if err != nil {
			return err
		}

		versions, err := hist.AllVersions()
		if err != nil {
			return err
		}
		labels, err := hist.Labels()
		if err != nil {
			return err
		}
		byVersion := make(map[string][]string)
		for label, name := range labels {
			byVersion[name] = append(byVersion[name], label)
		}

		fmt.Println(colors.SectionHeader(fmt.Sprintf("History of %s", args[0])))
		for _, v := range versions {
			line := fmt.Sprintf("  %s  rev %d  %s", colors.Cyan(v.Name), v.Revision, v.CreatedAt.Format("2006-01-02 15:04:05"))
			if ls := byVersion[v.Name]; len(ls) > 0 {
				for _, l := range ls {
					line += "  " + colors.Yellow("["+l+"]")
				}
			}
			fmt.Println(line)
		}
		return nil
	},
}

var (
	labelMove   bool
	labelRemove bool
)

var labelCmd = &cobra.Command{
	Use:   "label <path> <label> [version]",
	Short: "Manage version labels",
	Long:  "Attaches a label to a version of the node's history, or removes it with --remove",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeRepo, err := openSession()
		if err != nil {
			return err
		}
		defer closeRepo()

		st, err := sess.Node(args[0])
		if err != nil {
			return err
		}
		hist, err := sess.Versions.History(st.ID)
		if err != nil {
			return err
		}

		label := args[1]
		if labelRemove {
			if err := hist.RemoveLabel(label); err != nil {
				return err
			}
			fmt.Printf("removed label %s\n", label)
			return nil
		}
		if len(args) < 3 {
			return fmt.Errorf("a version name is required to attach a label")
		}
		if err := hist.AddLabel(args[2], label, labelMove); err != nil {
			return err
		}
		fmt.Printf("labeled version %s as %s\n", args[2], colors.Yellow("["+label+"]"))
		return nil
	},
}

func init() {
	labelCmd.Flags().BoolVar(&labelMove, "move", false, "move the label if it is attached to another version")
	labelCmd.Flags().BoolVar(&labelRemove, "remove", false, "remove the label")
}
