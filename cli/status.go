package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leachuk/jackrabbit/internal/colors"
	"github.com/leachuk/jackrabbit/internal/session"
	"github.com/leachuk/jackrabbit/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the repository status",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, closeRepo, err := openSession()
		if err != nil {
			return err
		}
		defer closeRepo()

		rev, err := sess.Store.Revision()
		if err != nil {
			return err
		}

		fmt.Println(colors.SectionHeader("Repository"))
		fmt.Printf("  root:     %s\n", sess.Store.RootID())
		fmt.Printf("  revision: %d\n", rev)
		return nil
	},
}

func printPending(sess *session.Session) {
	changes := sess.PendingChanges()
	if len(changes.Live) == 0 && len(changes.Attic) == 0 {
		fmt.Println("nothing pending")
		return
	}

	if len(changes.Live) > 0 {
		fmt.Println(colors.SectionHeader("Pending changes"))
		for _, st := range changes.Live {
			fmt.Println(colors.ColorizeStatus(st.Status.String(), describe(st)))
		}
	}
	if len(changes.Attic) > 0 {
		fmt.Println(colors.SectionHeader("Removed (resurrectable until save)"))
		for _, st := range changes.Attic {
			fmt.Println(colors.ColorizeStatus("removed", describe(st)))
		}
	}
}

func describe(st *state.NodeState) string {
	name := st.Name
	if name == "" {
		name = "/"
	}
	return fmt.Sprintf("%s (%s)", name, st.ID)
}
