package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leachuk/jackrabbit/internal/colors"
	"github.com/leachuk/jackrabbit/internal/nodeid"
	"github.com/leachuk/jackrabbit/internal/session"
)

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Print the node tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeRepo, err := openSession()
		if err != nil {
			return err
		}
		defer closeRepo()

		start := "/"
		if len(args) == 1 {
			start = args[0]
		}
		st, err := sess.Node(start)
		if err != nil {
			return err
		}

		label := start
		fmt.Println(colors.Bold(label))
		return printSubtree(sess, st.ID, 1)
	},
}

func printSubtree(sess *session.Session, id nodeid.ID, depth int) error {
	cur, err := sess.NodeByID(id)
	if err != nil {
		return err
	}
	for _, c := range cur.Children {
		child, err := sess.NodeByID(c.ID)
		if err != nil {
			return err
		}
		indent := strings.Repeat("  ", depth)
		if child.IsNode {
			fmt.Printf("%s%s/\n", indent, c.Name)
			if err := printSubtree(sess, c.ID, depth+1); err != nil {
				return err
			}
		} else {
			fmt.Printf("%s%s = %s\n", indent, c.Name, colors.Dim(child.Value.String()))
		}
	}
	return nil
}
