package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the vitals client.
// It registers the patient and reading command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "vitals",
		Short: "Vitals client commands",
	}
	root.AddCommand(NewPatientCommand(baseURL))
	root.AddCommand(NewReadingCommand(baseURL))
	return root
}
