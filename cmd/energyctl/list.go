package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported datasets",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(cmd.Context(), tenantID)
	if err != nil {
		return fmt.Errorf("listing datasets: %w", err)
	}
	if len(list) == 0 {
		fmt.Printf("No datasets found for %s\n", tenantID)
		return nil
	}

	fmt.Printf("%-34s  %-20s  %7s  %s\n", "ID", "Imported", "Records", "Source")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, stored := range list {
		fmt.Printf("%-34s  %-20s  %7d  %s\n",
			stored.ID, stored.UploadedAt.Local().Format("2006-01-02 15:04:05"), stored.Dataset.Len(), stored.Source)
	}
	return nil
}
