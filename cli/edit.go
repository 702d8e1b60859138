package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leachuk/jackrabbit/internal/colors"
)

var dryRun bool

var addCmd = &cobra.Command{
	Use:   "add <parent-path> <name>",
	Short: "Add a container node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeRepo, err := openSession()
		if err != nil {
			return err
		}
		defer closeRepo()

		st, err := sess.AddNode(args[0], args[1])
		if err != nil {
			return err
		}
		if dryRun {
			printPending(sess)
			return nil
		}
		if err := sess.SaveAll(); err != nil {
			return err
		}
		fmt.Printf("%s %s (%s)\n", colors.NewPrefix(), args[0]+"/"+args[1], st.ID)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a value entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeRepo, err := openSession()
		if err != nil {
			return err
		}
		defer closeRepo()

		st, err := sess.SetValue(args[0], []byte(args[1]))
		if err != nil {
			return err
		}
		if dryRun {
			printPending(sess)
			return nil
		}
		if err := sess.SaveAll(); err != nil {
			return err
		}
		fmt.Printf("%s %s = %s\n", colors.ModifiedPrefix(), args[0], st.Value)
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a value entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeRepo, err := openSession()
		if err != nil {
			return err
		}
		defer closeRepo()

		data, err := sess.Value(args[0])
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove a subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeRepo, err := openSession()
		if err != nil {
			return err
		}
		defer closeRepo()

		if err := sess.Remove(args[0]); err != nil {
			return err
		}
		if dryRun {
			printPending(sess)
			return nil
		}
		if err := sess.SaveAll(); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", colors.RemovedPrefix(), args[0])
		return nil
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <src-path> <dest-path>",
	Short: "Move a subtree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeRepo, err := openSession()
		if err != nil {
			return err
		}
		defer closeRepo()

		op, err := sess.Move(args[0], args[1])
		if err != nil {
			return err
		}
		if dryRun {
			printPending(sess)
			return nil
		}
		if err := sess.SaveAll(); err != nil {
			return err
		}
		fmt.Printf("%s %s -> %s (affected", colors.ModifiedPrefix(), args[0], args[1])
		for _, id := range op.AffectedIDs() {
			fmt.Printf(" %s", id)
		}
		fmt.Println(")")
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{addCmd, setCmd, rmCmd, mvCmd} {
		cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the pending overlay instead of saving")
	}
}
