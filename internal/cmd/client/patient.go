package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewPatientCommand constructs the `patient` command group and subcommands.
func NewPatientCommand(baseURL BaseURLFunc) *cobra.Command {
	patientCmd := &cobra.Command{Use: "patient", Short: "Patient operations"}
	patientCmd.AddCommand(newPatientCreateCommand(baseURL))
	return patientCmd
}

func newPatientCreateCommand(baseURL BaseURLFunc) *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a patient (idempotent)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString("id")
			label, _ := cmd.Flags().GetString("label")
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			var meta map[string]any
			err := doJSON(cmd.Context(), "POST", baseURL()+"/v1/patients", "",
				map[string]string{"id": id, "label": label}, &meta)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(meta)
		},
	}
	createCmd.Flags().String("id", "", "Patient identifier")
	createCmd.Flags().String("label", "", "Display label")
	return createCmd
}
