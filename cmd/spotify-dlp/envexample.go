package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envSections groups flags in the generated .env.example. Flags not listed are skipped.
var envSections = []struct {
	title string
	flags []string
}{
	{"Spotify Credentials (required)", []string{"client-id", "client-secret"}},
	{"Spotify Login", []string{"token-path", "redirect-url", "market"}},
	{"Download", []string{"output", "codec", "format", "type", "slice", "yes", "ytdlp-path",
		"duration-tolerance", "max-results"}},
	{"Server", []string{"metrics-addr"}},
	{"Logging & Localization", []string{"log-level", "log-format", "language"}},
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Fprintln(cmd.OutOrStdout(), "Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# spotify-dlp Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SETTING>=value\n", envPrefix)
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	for _, section := range envSections {
		content.WriteString("# -----------------------------------------------------------------------------\n")
		fmt.Fprintf(&content, "# %s\n", section.title)
		content.WriteString("# -----------------------------------------------------------------------------\n")
		for _, name := range section.flags {
			f := cmd.PersistentFlags().Lookup(name)
			if f == nil {
				continue
			}
			writeEnvFlag(&content, f)
		}
		content.WriteString("\n")
	}

	return content.String()
}

func writeEnvFlag(content *strings.Builder, f *pflag.Flag) {
	fmt.Fprintf(content, "# %s\n", f.Usage)
	value := f.DefValue
	if f.Value.Type() == "string" && strings.ContainsAny(value, " {}()") {
		value = fmt.Sprintf("%q", value)
	}
	fmt.Fprintf(content, "%s=%s\n", flagToEnvVar(f.Name), value)
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
