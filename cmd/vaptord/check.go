package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vapter/vaptord/internal/tools"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for required external tools",
	Long: `Verify that the external tools every stage worker shells out to
(nmap, httpx, tlsx, nuclei, gowitness) are installed and available on PATH,
printing install instructions for anything missing.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	results := tools.CheckTools(tools.DefaultTools())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Tool\tStatus\tVersion\tPurpose")
	fmt.Fprintln(w, "----\t------\t-------\t-------")

	found, requiredMissing := 0, 0
	for _, r := range results {
		status, version := "[-]", "-"
		if r.Found {
			status = "[+]"
			found++
			if r.Version != "" && r.Version != "unknown" {
				version = r.Version
			}
		} else if r.Tool.Required {
			requiredMissing++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Tool.Name, status, version, r.Tool.Purpose)
	}
	w.Flush()

	fmt.Println()
	missing := false
	for _, r := range results {
		if r.Found {
			continue
		}
		if !missing {
			fmt.Println("Missing tools:")
			missing = true
		}
		required := ""
		if r.Tool.Required {
			required = " (REQUIRED)"
		}
		fmt.Printf("  %s%s\n    Install: %s\n", r.Tool.Name, required, r.Tool.InstallCmd)
	}

	fmt.Println()
	fmt.Printf("Summary: %d/%d tools found", found, len(results))
	if requiredMissing > 0 {
		fmt.Printf(", %d required tools missing", requiredMissing)
	}
	fmt.Println()

	if requiredMissing > 0 {
		return fmt.Errorf("required tools are missing")
	}
	return nil
}
