package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gdex-tools/datahelp-router/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure Jira and directory connection settings",
	Long:  `Interactively set up the credential slot, Jira URL, email, API token and dataset directory URL. Settings are saved to ~/.datahelp-router.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		// Load existing config for defaults
		existing, _ := config.Load(cfgFile)
		cfg := existing

		cfg.Slot = config.NormalizeSlot(prompt(reader, "Slot (production or staging)", existing.Slot))

		url := prompt(reader, "JIRA URL (e.g., https://your-org.atlassian.net)", existing.Credentials().URL)
		if cfg.Slot == config.SlotStaging {
			cfg.TestURL = url
		} else {
			cfg.ProdURL = url
		}

		cfg.Email = prompt(reader, "Email", existing.Email)

		// Token (masked input)
		fmt.Print("API Token (input hidden, empty keeps current): ")
		tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // newline after hidden input
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		if token := strings.TrimSpace(string(tokenBytes)); token != "" {
			if cfg.Slot == config.SlotStaging {
				cfg.TestToken = token
			} else {
				cfg.ProdToken = token
			}
		}

		cfg.DirectoryURL = prompt(reader, "Dataset directory URL ({id} marks the dataset id)", existing.DirectoryURL)
		cfg.CatchAll = prompt(reader, "Catch-all directory address", existing.CatchAll)
		pool := prompt(reader, "Fallback pool (comma-separated emails)", strings.Join(existing.FallbackPool, ","))
		cfg.FallbackPool = splitList(pool)
		cfg.EscalationContact = prompt(reader, "Escalation contact", existing.EscalationContact)

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}

		if err := config.Save(cfg, path); err != nil {
			return err
		}

		fmt.Printf("Configuration saved to %s\n", path)
		return nil
	},
}

// prompt reads one line, returning def when the answer is blank.
func prompt(reader *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(configCmd)
}
